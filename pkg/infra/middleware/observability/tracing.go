package observability

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/axiomcore/pkg/infra/middleware/common"
	"github.com/kart-io/axiomcore/pkg/infra/middleware/internal/pathutil"
	"github.com/kart-io/axiomcore/pkg/infra/tracing"
	mwopts "github.com/kart-io/axiomcore/pkg/options/middleware"
)

// TracingWithOptions creates a server span per request.
//
// This middleware:
//   - Extracts trace context from incoming requests (W3C Trace Context)
//   - Names the span "<method> <route>" using the gin route template
//   - Adds standard HTTP attributes and the request ID
//   - Marks 5xx responses and handler errors as span errors
func TracingWithOptions(opts mwopts.TracingOptions) gin.HandlerFunc {
	skip := pathutil.NewPathMatcher(opts.SkipPaths, opts.SkipPathPrefixes)
	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = mwopts.NewTracingOptions().TracerName
	}

	return func(c *gin.Context) {
		req := c.Request
		if skip(req.URL.Path) {
			c.Next()
			return
		}

		propagator := tracing.GetGlobalTextMapPropagator()
		ctx := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		ctx, span := tracing.StartSpanWithKind(ctx, tracerName, spanName(c), trace.SpanKindServer)
		defer span.End()

		c.Request = req.WithContext(ctx)

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(req.Method),
			semconv.HTTPTarget(req.URL.Path),
			semconv.ServerAddress(req.Host),
			attribute.String(tracing.HTTPClientIP, c.ClientIP()),
		}
		if route := c.FullPath(); route != "" {
			attrs = append(attrs, semconv.HTTPRoute(route))
		}
		if userAgent := req.UserAgent(); userAgent != "" {
			attrs = append(attrs, semconv.UserAgentOriginal(userAgent))
		}
		if requestID := common.GetRequestID(req.Context()); requestID != "" {
			attrs = append(attrs, attribute.String(tracing.HTTPRequestID, requestID))
		}
		span.SetAttributes(attrs...)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))

		if err := c.Errors.Last(); err != nil {
			span.RecordError(err.Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func spanName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return fmt.Sprintf("%s %s", c.Request.Method, route)
}
