package filters

import (
	"context"
	"strings"

	"asr-auth/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Token and session key carriers.
const (
	HeaderAuthToken  = "X-Auth-Token"
	HeaderSessionKey = "X-Session-Key"
	QueryToken       = "token"
	QuerySessionKey  = "session_key"
)

// Authenticator resolves a presented token and session key to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token, sessionKey string) (*auth.Principal, error)
}

// TokenFilter resolves the request's token, if any, and attaches the principal to the request.
// No token continues anonymously. A bad token on a permitted path also continues anonymously;
// anywhere else the entry point answers with the token's error code.
func TokenFilter(authn Authenticator, permitted *PathMatcher, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		p, err := authn.Authenticate(c.Request.Context(), token, extractSessionKey(c))
		if err != nil {
			e := auth.Lookup(err)
			entry := log.WithFields(logrus.Fields{"path": c.Request.URL.Path, "reason": e.Code})
			if permitted.Match(c.Request.URL.Path) {
				entry.Debug("token rejected on permitted path")
				c.Next()
				return
			}
			if e == auth.ErrServiceUnavailable {
				entry.WithError(err).Error("token lookup failed")
			} else {
				entry.Info("token rejected")
			}
			EntryPoint(c, err)
			return
		}

		setPrincipal(c, p)
		c.Next()
	}
}

// extractToken reads the Bearer Authorization header, then X-Auth-Token, then ?token.
func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}
	if t := strings.TrimSpace(c.GetHeader(HeaderAuthToken)); t != "" {
		return t
	}
	return strings.TrimSpace(c.Query(QueryToken))
}

func extractSessionKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(HeaderSessionKey)); k != "" {
		return k
	}
	return strings.TrimSpace(c.Query(QuerySessionKey))
}
