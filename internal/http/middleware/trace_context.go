package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/techwave-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stores correlation ids on the request context and echoes them
// back. It must run after otelgin: when the client sends no X-Trace-Id the active
// span's trace id is used, so log lines and spans share one id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		td := &ctxutil.TraceData{
			TraceID:        headerOr(c, headerTraceID, ""),
			RequestID:      headerOr(c, headerRequestID, uuid.NewString()),
			IdempotencyKey: headerOr(c, HeaderIdempotencyKey, ""),
		}
		if td.TraceID == "" {
			if sc := span.SpanContext(); sc.HasTraceID() {
				td.TraceID = sc.TraceID().String()
			} else {
				td.TraceID = uuid.NewString()
			}
		}

		attrs := []attribute.KeyValue{attribute.String("http.request_id", td.RequestID)}
		if td.IdempotencyKey != "" {
			attrs = append(attrs, attribute.String("http.idempotency_key", td.IdempotencyKey))
		}
		span.SetAttributes(attrs...)

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Writer.Header().Set(headerTraceID, td.TraceID)
		c.Writer.Header().Set(headerRequestID, td.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name, fallback string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return fallback
}
