// Package security provides security middleware.
package security

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// CORS header names.
const (
	HeaderOrigin           = "Origin"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
	HeaderRequestHeaders   = "Access-Control-Request-Headers"
	HeaderVary             = "Vary"
)

// CORS returns a middleware that adds CORS headers.
func CORS() gin.HandlerFunc {
	return CORSWithOptions(*mwopts.NewCORSOptions())
}

// validateOriginFormat validates that an origin follows the correct URL format.
// Origins must be in the format: scheme://host[:port]
func validateOriginFormat(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin cannot be empty")
	}

	if !strings.Contains(origin, "://") {
		return fmt.Errorf("origin must include scheme (http:// or https://)")
	}

	schemeEnd := strings.Index(origin, "://") + 3
	if schemeEnd < len(origin) {
		remainder := origin[schemeEnd:]
		if strings.ContainsAny(remainder, "/?#") {
			return fmt.Errorf("origin should not include path, query, or fragment")
		}
	}

	return nil
}

// CORSWithOptions returns a CORS middleware with CORSOptions.
//
// A wildcard origin answers with "*" and never sends credentials, since
// browsers reject that pair. Explicit origins are echoed back together with
// Access-Control-Allow-Credentials and Vary: Origin. Preflight requests from
// an allowed origin end with 204.
func CORSWithOptions(opts mwopts.CORSOptions) gin.HandlerFunc {
	wildcard := opts.IsWildcard()
	credentials := opts.AllowCredentials
	if wildcard && credentials {
		logger.Warn("CORS: wildcard origin cannot be combined with credentials, credentials disabled")
		credentials = false
	}

	allowed := make(map[string]struct{}, len(opts.AllowOrigins))
	for _, o := range opts.AllowOrigins {
		if o == "*" {
			continue
		}
		if err := validateOriginFormat(o); err != nil {
			logger.Warnw("CORS: ignoring invalid origin", "origin", o, "error", err.Error())
			continue
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		}
	}

	allowMethods := strings.Join(opts.AllowMethods, ",")
	allowHeaders := strings.Join(opts.AllowHeaders, ",")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ",")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(c *gin.Context) {
		req := c.Request
		origin := req.Header.Get(HeaderOrigin)

		switch {
		case wildcard:
			c.Header(HeaderAllowOrigin, "*")
		case origin == "":
			c.Next()
			return
		default:
			c.Writer.Header().Add(HeaderVary, HeaderOrigin)
			if _, ok := allowed[origin]; !ok {
				c.Next()
				return
			}
			c.Header(HeaderAllowOrigin, origin)
		}

		if credentials {
			c.Header(HeaderAllowCredentials, "true")
		}
		if exposeHeaders != "" {
			c.Header(HeaderExposeHeaders, exposeHeaders)
		}

		if req.Method != http.MethodOptions {
			c.Next()
			return
		}

		// 预检请求
		c.Header(HeaderAllowMethods, allowMethods)
		if allowHeaders != "" {
			c.Header(HeaderAllowHeaders, allowHeaders)
		} else if requested := req.Header.Get(HeaderRequestHeaders); requested != "" {
			c.Header(HeaderAllowHeaders, requested)
			c.Writer.Header().Add(HeaderVary, HeaderRequestHeaders)
		}
		if opts.MaxAge > 0 {
			c.Header(HeaderMaxAge, maxAge)
		}
		c.Header("Content-Length", "0")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
