package filters

import (
	"time"

	"asr-auth/internal/logger"
	"asr-auth/internal/server/interceptors"
	"asr-auth/internal/telemetry"
	"asr-auth/internal/telemetry/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

// RequestContext assigns a request ID, records the client IP for audit and stores a
// request-scoped log entry in the request context.
func RequestContext(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		ctx := interceptors.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = logger.NewContext(ctx, log.WithField("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger writes one line per request after it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if p, ok := PrincipalFrom(c); ok {
			entry = entry.WithField("username", p.Username)
		}
		if code := c.GetString(errorCodeKey); code != "" {
			entry = entry.WithField("code", code)
		}
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request")
		case c.Writer.Status() >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// Telemetry emits an http_request event after each request. skip lists paths not to emit
// (e.g. /healthz). A nil emitter disables it.
func Telemetry(emitter telemetry.EventEmitter, log logrus.FieldLogger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if emitter == nil || skipped[c.Request.URL.Path] {
			return
		}
		var username string
		if p, ok := PrincipalFrom(c); ok {
			username = p.Username
		}
		telemetry.EmitAsync(emitter, log, &domain.AuthEvent{
			ID:        uuid.NewString(),
			EventType: domain.EventHTTPRequest,
			Source:    "http",
			Username:  username,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Status:    c.Writer.Status(),
			Code:      c.GetString(errorCodeKey),
			LatencyMS: time.Since(start).Milliseconds(),
			Metadata:  map[string]string{"client_ip": c.ClientIP()},
			CreatedAt: start.UTC(),
		})
	}
}
