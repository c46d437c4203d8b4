// Package filters is the HTTP security pipeline: token and login filters, the entry point and
// access-denied handlers, authorization, and the handful of routes that sit behind them.
package filters

import (
	"net/http"

	"asr-auth/internal/auth"
	"asr-auth/internal/server/interceptors"

	"github.com/gin-gonic/gin"
)

// CodeOK is the code of every successful response body.
const CodeOK = 0

const (
	principalKey = "asr.principal"
	errorCodeKey = "asr.error_code"
)

// Success writes 200 {"code":0,"data":data}.
func Success(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Fail aborts the request with the status and public code of err's taxonomy entry.
// Errors outside the taxonomy are reported as INTERNAL_ERROR without detail.
func Fail(c *gin.Context, err error) {
	e := auth.Lookup(err)
	c.Set(errorCodeKey, e.PublicCode())
	c.AbortWithStatusJSON(e.Status, gin.H{
		"code":    e.PublicCode(),
		"message": e.Message,
	})
}

// EntryPoint answers an unauthenticated request on a protected path. err is the token
// failure when one was presented; nil means no credentials at all.
func EntryPoint(c *gin.Context, err error) {
	if err == nil {
		err = auth.ErrUnauthenticated
	}
	Fail(c, err)
}

// AccessDenied answers an authenticated request the principal has no authority for.
func AccessDenied(c *gin.Context) {
	Fail(c, auth.ErrAccessDenied)
}

// PrincipalFrom returns the principal set by the token or login filter.
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

func setPrincipal(c *gin.Context, p *auth.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(interceptors.WithPrincipal(c.Request.Context(), p))
}
