package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one API call across logs, spans and outbox events.
type TraceData struct {
	TraceID   string
	RequestID string
	// IdempotencyKey is the client-supplied Idempotency-Key, if any.
	IdempotencyKey string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// LogFields returns the correlation ids and the caller of ctx as logger key/value pairs.
func LogFields(ctx context.Context) []any {
	var out []any
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			out = append(out, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			out = append(out, "request_id", td.RequestID)
		}
		if td.IdempotencyKey != "" {
			out = append(out, "idempotency_key", td.IdempotencyKey)
		}
	}
	if rd := GetRequestData(ctx); rd != nil {
		out = append(out, "user_id", rd.UserID.String(), "role", string(rd.Role))
	}
	return out
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
