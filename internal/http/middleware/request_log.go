package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/platform/ctxutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// healthPaths are only logged when they fail.
var healthPaths = map[string]bool{"/healthcheck": true, "/metrics": true}

// RequestLogger writes one line per request with the matched route, its path
// params, the caller, the correlation ids and the error code of a failed call.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if healthPaths[c.Request.URL.Path] && status < http.StatusInternalServerError {
			return
		}

		fields := []any{
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		for _, p := range c.Params {
			fields = append(fields, "param_"+p.Key, p.Value)
		}
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if code := response.ErrorCode(c); code != "" {
			fields = append(fields, "error_code", code)
		}
		if c.Writer.Header().Get(headerReplayed) != "" {
			fields = append(fields, "idempotent_replay", true)
		}
		if status >= http.StatusInternalServerError && len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request failed", fields...)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			log.Warn("HTTP request denied", fields...)
		case status >= http.StatusBadRequest:
			// rejected business operations such as a stock shortage
			log.Info("HTTP request rejected", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// routeOf returns the route template so ids do not explode log cardinality.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
