// Package observability provides request logging, metrics and tracing middleware.
package observability

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/common"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/internal/pathutil"
	"github.com/kart-io/axiomcore/pkg/infra/tracing"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// fieldsPool is a sync.Pool for reusing fields slices to reduce heap allocations.
var fieldsPool = sync.Pool{
	New: func() interface{} {
		s := make([]interface{}, 0, 18)
		return &s
	},
}

func acquireFields() *[]interface{} {
	return fieldsPool.Get().(*[]interface{})
}

func releaseFields(fields *[]interface{}) {
	*fields = (*fields)[:0]
	fieldsPool.Put(fields)
}

// Logger returns a middleware that logs HTTP requests with default options.
func Logger() gin.HandlerFunc {
	return LoggerWithOptions(*mwopts.NewLoggerOptions())
}

// LoggerWithOptions 返回请求日志中间件，每个请求输出一条 "HTTP Request" 结构化日志。
//
// 5xx 使用 Error 级别，4xx 使用 Warn 级别，其余使用 Info 级别。
func LoggerWithOptions(opts mwopts.LoggerOptions) gin.HandlerFunc {
	skip := pathutil.NewPathMatcher(opts.SkipPaths, nil)

	return func(c *gin.Context) {
		req := c.Request
		path := req.URL.Path

		if skip(path) {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := acquireFields()
		defer releaseFields(fields)

		*fields = append(*fields,
			"method", req.Method,
			"path", path,
			"ip", c.ClientIP(),
			"userAgent", req.UserAgent(),
			"status", status,
			"latency_ms", latency.Milliseconds(),
		)
		if requestID := common.GetRequestID(req.Context()); requestID != "" {
			*fields = append(*fields, "request_id", requestID)
		}
		if traceID := tracing.TraceIDFromContext(req.Context()); traceID != "" {
			*fields = append(*fields, "trace_id", traceID)
		}

		switch {
		case status >= 500:
			logger.Errorw("HTTP Request", (*fields)...)
		case status >= 400:
			logger.Warnw("HTTP Request", (*fields)...)
		default:
			logger.Infow("HTTP Request", (*fields)...)
		}
	}
}
