package filters

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"asr-auth/internal/audit"
	auditrepo "asr-auth/internal/audit/repository"
	"asr-auth/internal/auth"
	"asr-auth/internal/health"
	"asr-auth/internal/session/registry"
	"asr-auth/internal/telemetry"
	"asr-auth/internal/telemetry/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogoutPath is always permitted; without a valid token it is a no-op.
const LogoutPath = "/user/logout"

// LogoutService ends the principal's session.
type LogoutService interface {
	Logout(ctx context.Context, p *auth.Principal) error
}

// Logout deletes the caller's token record and forgets its session.
func Logout(svc LogoutService, auditLogger audit.AuditLogger, emitter telemetry.EventEmitter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			Success(c, gin.H{})
			return
		}
		if err := svc.Logout(c.Request.Context(), p); err != nil {
			log.WithError(err).WithField("username", p.Username).Error("logout failed")
			Fail(c, err)
			return
		}
		if auditLogger != nil {
			auditLogger.LogEvent(c.Request.Context(), p.Username, audit.ActionLogout, LogoutPath, "")
		}
		telemetry.EmitAsync(emitter, log, &domain.AuthEvent{
			ID:        uuid.NewString(),
			EventType: domain.EventLogout,
			Source:    "http",
			Username:  p.Username,
			Method:    c.Request.Method,
			Path:      LogoutPath,
			CreatedAt: time.Now().UTC(),
		})
		Success(c, gin.H{})
	}
}

// Me returns the current principal.
func Me(c *gin.Context) {
	p, ok := PrincipalFrom(c)
	if !ok {
		EntryPoint(c, nil)
		return
	}
	Success(c, gin.H{
		"username":    p.Username,
		"authorities": p.Authorities,
		"session_key": p.SessionKey,
		"expires_at":  p.ExpiresAt,
	})
}

type sessionView struct {
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}

// Sessions lists live registry entries, optionally for one ?username. Session IDs are not exposed.
func Sessions(reg registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		principals := reg.Principals()
		if u := c.Query("username"); u != "" {
			principals = []string{u}
		}
		sort.Strings(principals)
		out := make([]sessionView, 0, len(principals))
		for _, u := range principals {
			for _, e := range reg.ActiveSessions(u) {
				out = append(out, sessionView{Username: e.Principal, CreatedAt: e.CreatedAt, LastAccessAt: e.LastAccessAt})
			}
		}
		Success(c, gin.H{"sessions": out, "total": len(out)})
	}
}

// AuditLogs lists audit entries, newest first, optionally for one ?username, capped by ?limit.
func AuditLogs(repo auditrepo.Repository, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				Fail(c, auth.ErrMalformedRequest)
				return
			}
			limit = n
		}
		logs, err := repo.ListByUsername(c.Request.Context(), c.Query("username"), limit)
		if err != nil {
			log.WithError(err).Error("list audit logs failed")
			Fail(c, auth.ErrServiceUnavailable)
			return
		}
		Success(c, gin.H{"logs": logs})
	}
}

// Healthz reports readiness: 200 when every probe passes, 503 otherwise.
func Healthz(checker *health.Checker, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := checker.Check(ctx); err != nil {
			log.WithError(err).Warn("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"code":    auth.ErrServiceUnavailable.Code,
				"message": "NOT_SERVING",
			})
			return
		}
		Success(c, gin.H{"status": "SERVING"})
	}
}
