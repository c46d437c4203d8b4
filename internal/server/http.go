package server

import (
	"net/http"

	"asr-auth/internal/audit"
	auditrepo "asr-auth/internal/audit/repository"
	"asr-auth/internal/auth"
	"asr-auth/internal/health"
	"asr-auth/internal/policy/engine"
	"asr-auth/internal/server/filters"
	"asr-auth/internal/session/registry"
	"asr-auth/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthzPath answers readiness probes.
const HealthzPath = "/healthz"

// AuthService is the login, token and logout flow behind the HTTP pipeline (*auth.Service).
type AuthService interface {
	filters.Authenticator
	filters.LoginService
	filters.LogoutService
}

var _ AuthService = (*auth.Service)(nil)

// HTTPDeps holds the dependencies of the HTTP pipeline. Optional fields may be nil.
type HTTPDeps struct {
	Auth     AuthService
	Registry registry.Registry
	// AllowList holds ant-style patterns reachable without a token.
	AllowList []string
	Evaluator engine.Evaluator
	Audit     audit.AuditLogger
	// AuditRepo backs GET /admin/audit; nil leaves the route out.
	AuditRepo auditrepo.Repository
	Emitter   telemetry.EventEmitter
	Health    *health.Checker
	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is believed; nil trusts none.
	TrustedProxies []string
	Log            *logrus.Logger
}

// NewRouter builds the gin engine. Middleware order: recovery, request context, logging,
// telemetry, token filter, login filter, authentication gate, authorization.
func NewRouter(deps HTTPDeps) (*gin.Engine, error) {
	permitted, err := filters.NewPathMatcher(append([]string{filters.LoginPath, filters.LogoutPath, HealthzPath}, deps.AllowList...)...)
	if err != nil {
		return nil, err
	}
	log := deps.Log

	r := gin.New()
	// Path fix-ups would answer before the security filters with an HTML redirect.
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(
		gin.Recovery(),
		filters.RequestContext(log),
		filters.RequestLogger(),
		filters.Telemetry(deps.Emitter, log, HealthzPath),
		filters.TokenFilter(deps.Auth, permitted, log),
		filters.NewLoginFilter(deps.Auth, deps.Audit, deps.Emitter, log).Handler(),
		filters.RequireAuthenticated(permitted),
		filters.Authorize(deps.Evaluator, permitted, deps.Audit, log),
	)

	r.POST(filters.LogoutPath, filters.Logout(deps.Auth, deps.Audit, deps.Emitter, log))
	r.GET("/user/me", filters.Me)
	r.GET("/admin/sessions", filters.Sessions(deps.Registry))
	if deps.AuditRepo != nil {
		r.GET("/admin/audit", filters.AuditLogs(deps.AuditRepo, log))
	}
	r.GET(HealthzPath, filters.Healthz(deps.Health, log))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "no such resource"})
	})
	return r, nil
}
