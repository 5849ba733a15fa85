package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	appctx "konditer/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace middleware adds request tracing context. It reuses the ids of the
// OpenTelemetry span started by otelgin when one is recording.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		traceID, spanID := c.GetHeader(HeaderTraceID), ""
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
		}
		tc := appctx.NewTraceContext(traceID, spanID, c.GetHeader(HeaderRequestID))

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", tc.RequestID)

		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}
