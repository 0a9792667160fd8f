package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisclient "github.com/yungbote/techwave-backend/internal/clients/redis"
	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/apierr"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 200
)

type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated POST carrying the same
// Idempotency-Key from the same user. Keys are scoped by user, method and path.
// A key is held as pending for pendingTTL while the handler runs and the finished
// response is kept for ttl. A 5xx, a panic, or a conflict/retryable answer releases
// the key so the client may retry with it.
// Must run after RequireAuth.
func Idempotency(log *logger.Logger, store redisclient.IdempotencyStore, ttl, pendingTTL time.Duration, m *observability.Metrics) gin.HandlerFunc {
	log = log.With("Middleware", "Idempotency")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = min(2*time.Minute, ttl)
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if store == nil || c.Request.Method != http.MethodPost || raw == "" {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLen {
			response.RespondErr(c, apierr.BadRequest("validation", errors.New("Idempotency-Key too long")))
			return
		}

		actor := ActorFrom(c)
		key := strings.Join([]string{actor.UserID.String(), c.Request.Method, c.Request.URL.Path, raw}, "|")
		ctx := c.Request.Context()

		res, err := store.Reserve(ctx, key, pendingTTL)
		if err != nil {
			// the store is advisory; an outage must not block checkout
			log.Warn("Idempotency store unavailable", "error", err)
			m.IncIdempotency("store_error")
			c.Next()
			return
		}
		switch {
		case res.Record != nil:
			m.IncIdempotency("replayed")
			c.Header(headerReplayed, "true")
			contentType := res.Record.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(res.Record.Status, contentType, res.Record.Body)
			c.Abort()
			return
		case res.InProgress():
			m.IncIdempotency("in_progress")
			response.RespondErr(c, apierr.Conflict("idempotency_in_progress", errors.New("a request with this Idempotency-Key is still in progress")))
			return
		}

		m.IncIdempotency("reserved")
		release := func(reason string) {
			// the request context may already be cancelled
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("Idempotency release failed", "reason", reason, "error", err)
			}
		}
		defer func() {
			if p := recover(); p != nil {
				release("panic")
				panic(p)
			}
		}()

		w := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		switch {
		case status >= http.StatusInternalServerError:
			release("server_error")
			return
		case response.Retryable(c):
			release("retryable")
			return
		}
		rec := redisclient.IdempotencyRecord{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		}
		if err := store.Complete(ctx, key, rec, ttl); err != nil {
			log.Warn("Idempotency complete failed", "error", err)
		}
	}
}
