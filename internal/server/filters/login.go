package filters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"asr-auth/internal/audit"
	"asr-auth/internal/auth"
	"asr-auth/internal/telemetry"
	"asr-auth/internal/telemetry/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LoginPath is the only request the login filter handles.
const LoginPath = "/user/login"

// maxLoginBody caps the login request body.
const maxLoginBody = 8 << 10

// LoginService runs the password login flow.
type LoginService interface {
	Login(ctx context.Context, username, password, sessionKey string) (*auth.LoginResult, error)
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SessionKey string `json:"session_key"`
}

// LoginFilter handles POST /user/login; every other request passes through untouched.
type LoginFilter struct {
	svc     LoginService
	audit   audit.AuditLogger
	emitter telemetry.EventEmitter
	log     logrus.FieldLogger
	logins  metric.Int64Counter
}

// NewLoginFilter returns a login filter. auditLogger and emitter may be nil.
func NewLoginFilter(svc LoginService, auditLogger audit.AuditLogger, emitter telemetry.EventEmitter, log logrus.FieldLogger) *LoginFilter {
	logins, err := otel.Meter("asr-auth/filters").Int64Counter("asr.auth.logins",
		metric.WithDescription("Login attempts by result code."))
	if err != nil {
		log.WithError(err).Warn("login counter unavailable")
	}
	return &LoginFilter{svc: svc, audit: auditLogger, emitter: emitter, log: log, logins: logins}
}

// Handler returns the gin middleware.
func (f *LoginFilter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != LoginPath {
			c.Next()
			return
		}
		f.login(c)
	}
}

func (f *LoginFilter) login(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := decodeLogin(c)
	if err != nil {
		f.log.WithError(err).Info("malformed login request")
		f.record(ctx, auth.ErrMalformedRequest.Code)
		Fail(c, auth.ErrMalformedRequest)
		return
	}
	sessionKey := strings.TrimSpace(c.GetHeader(HeaderSessionKey))
	if sessionKey == "" {
		sessionKey = strings.TrimSpace(req.SessionKey)
	}

	res, err := f.svc.Login(ctx, req.Username, req.Password, sessionKey)
	if err != nil {
		f.failure(c, req.Username, err)
		return
	}

	setPrincipal(c, res.Principal)
	f.record(ctx, "OK")
	if f.audit != nil {
		f.audit.LogEvent(ctx, res.Principal.Username, audit.ActionLoginSuccess, LoginPath, "token_id="+res.TokenID)
		if res.Evicted > 0 {
			f.audit.LogEvent(ctx, res.Principal.Username, audit.ActionSessionEvicted, LoginPath,
				"evicted="+strconv.Itoa(res.Evicted))
		}
	}
	f.emit(c, domain.EventLoginSuccess, res.Principal.Username, "", nil)
	if res.Evicted > 0 {
		f.emit(c, domain.EventSessionEvicted, res.Principal.Username, "",
			map[string]string{"evicted": strconv.Itoa(res.Evicted)})
	}

	Success(c, gin.H{
		"token":       res.Token,
		"session_key": res.SessionKey,
		"expires_at":  res.ExpiresAt,
		"username":    res.Principal.Username,
		"authorities": res.Principal.Authorities,
	})
	c.Abort()
}

// failure logs the precise reason server-side; the response only carries the public code.
func (f *LoginFilter) failure(c *gin.Context, username string, err error) {
	ctx := c.Request.Context()
	e := auth.Lookup(err)
	entry := f.log.WithFields(logrus.Fields{"username": username, "reason": e.Code})
	if e.Status >= http.StatusInternalServerError {
		entry.WithError(err).Error("login failed")
	} else {
		entry.Info("login failed")
	}
	f.record(ctx, e.Code)
	if f.audit != nil {
		f.audit.LogEvent(ctx, username, audit.ActionLoginFailure, LoginPath, "reason="+e.Code)
	}
	f.emit(c, domain.EventLoginFailure, username, e.PublicCode(), nil)
	Fail(c, err)
}

func (f *LoginFilter) record(ctx context.Context, result string) {
	if f.logins == nil {
		return
	}
	f.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (f *LoginFilter) emit(c *gin.Context, eventType, username, code string, meta map[string]string) {
	telemetry.EmitAsync(f.emitter, f.log, &domain.AuthEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Source:    "login_filter",
		Username:  username,
		Method:    c.Request.Method,
		Path:      LoginPath,
		Code:      code,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
}

// decodeLogin reads exactly one JSON object with known fields and a non-empty username and password.
func decodeLogin(c *gin.Context) (*loginRequest, error) {
	if c.Request.Body == nil {
		return nil, errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBody))
	dec.DisallowUnknownFields()
	var req loginRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after login object")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return nil, errors.New("username and password are required")
	}
	return &req, nil
}
