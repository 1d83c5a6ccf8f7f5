package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// HeaderXRequestID is re-exported from common.
const HeaderXRequestID = common.HeaderXRequestID

// ContextKeyRequestID is the gin context key holding the request ID.
const ContextKeyRequestID = "request_id"

// RequestID returns a middleware that adds a request ID with default options.
func RequestID() gin.HandlerFunc {
	return RequestIDWithOptions(*mwopts.NewRequestIDOptions(), nil)
}

// RequestIDWithOptions returns a middleware that honors an incoming request ID
// header or generates one. The ID is echoed in the response header and stored
// both in the gin context and in the request context.
//
// generator overrides opts.GeneratorType when non-nil.
func RequestIDWithOptions(opts mwopts.RequestIDOptions, generator func() string) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = HeaderXRequestID
	}
	if generator == nil {
		generator = common.GeneratorFor(opts.GeneratorType)
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(header)
		if requestID == "" {
			requestID = generator()
		}

		c.Header(header, requestID)
		c.Set(ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID returns the request ID from the context.
var GetRequestID = common.GetRequestID
