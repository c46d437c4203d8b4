package filters

import (
	"fmt"

	"asr-auth/internal/audit"
	"asr-auth/internal/auth"
	"asr-auth/internal/policy/engine"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequireAuthenticated sends anonymous requests on non-permitted paths to the entry point.
func RequireAuthenticated(permitted *PathMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if permitted.Match(c.Request.URL.Path) {
			c.Next()
			return
		}
		if _, ok := PrincipalFrom(c); !ok {
			EntryPoint(c, nil)
			return
		}
		c.Next()
	}
}

// Authorize asks the policy evaluator about every authenticated request on a non-permitted path.
// A denial goes to the access-denied handler; an evaluation failure denies with 503.
func Authorize(evaluator engine.Evaluator, permitted *PathMatcher, auditLogger audit.AuditLogger, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if evaluator == nil || !ok || permitted.Match(c.Request.URL.Path) {
			c.Next()
			return
		}
		in := engine.Input{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Username:    p.Username,
			Authorities: p.Authorities,
		}
		allowed, err := evaluator.Allow(c.Request.Context(), in)
		if err != nil {
			log.WithError(err).WithField("path", in.Path).Error("policy evaluation failed")
			Fail(c, fmt.Errorf("%w: %w", auth.ErrServiceUnavailable, err))
			return
		}
		if !allowed {
			log.WithFields(logrus.Fields{"username": p.Username, "method": in.Method, "path": in.Path}).Info("access denied")
			if auditLogger != nil {
				auditLogger.LogEvent(c.Request.Context(), p.Username, audit.ActionAccessDenied, in.Path, "method="+in.Method)
			}
			AccessDenied(c)
			return
		}
		c.Next()
	}
}
