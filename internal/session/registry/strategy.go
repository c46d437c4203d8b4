package registry

import (
	"context"
	"errors"
	"time"

	"asr-auth/internal/session/domain"
	tokendomain "asr-auth/internal/token/domain"

	"github.com/sirupsen/logrus"
)

// ErrMaximumSessionsExceeded is returned when PreventLoginWhenMaximum is set and the
// principal already holds the maximum number of live sessions.
var ErrMaximumSessionsExceeded = errors.New("maximum sessions exceeded")

// Tokens is the part of the token store the strategy needs: checking whether a session's
// token is still live and deleting it on eviction.
type Tokens interface {
	GetByToken(ctx context.Context, token string) (*tokendomain.Token, error)
	DeleteByToken(ctx context.Context, token string) error
}

// ConcurrentControl applies the concurrent-session policy once per successful login.
// Callers must hold the principal's Locker entry so evaluation and registration are atomic
// with respect to other logins for the same principal.
type ConcurrentControl struct {
	Registry Registry
	Tokens   Tokens
	// MaxSessions defaults to 1 when zero or negative.
	MaxSessions             int
	PreventLoginWhenMaximum bool
	Log                     logrus.FieldLogger
	Now                     func() time.Time
}

// OnAuthentication admits sessionID for principal. Sessions whose token has already expired
// or vanished are retired first. When admitting sessionID would still exceed the maximum,
// the oldest sessions are expired and their tokens deleted, unless PreventLoginWhenMaximum
// is set, in which case ErrMaximumSessionsExceeded is returned and nothing is registered.
// It returns the evicted session IDs.
func (c *ConcurrentControl) OnAuthentication(ctx context.Context, principal, sessionID string) ([]string, error) {
	max := c.MaxSessions
	if max <= 0 {
		max = 1
	}
	active, err := c.live(ctx, c.Registry.ActiveSessions(principal))
	if err != nil {
		return nil, err
	}

	var evicted []string
	if excess := len(active) - max + 1; excess > 0 {
		if c.PreventLoginWhenMaximum {
			return nil, ErrMaximumSessionsExceeded
		}
		for _, e := range active[:excess] {
			if e.SessionID == sessionID {
				continue
			}
			if c.Tokens != nil {
				if err := c.Tokens.DeleteByToken(ctx, e.SessionID); err != nil {
					return evicted, err
				}
			}
			c.Registry.ExpireNow(e.SessionID)
			evicted = append(evicted, e.SessionID)
		}
		if c.Log != nil && len(evicted) > 0 {
			c.Log.WithFields(logrus.Fields{"username": principal, "evicted": len(evicted)}).Info("sessions evicted by newer login")
		}
	}
	c.Registry.Register(principal, sessionID)
	return evicted, nil
}

// live drops entries whose token record is gone or expired, removing them from the registry.
func (c *ConcurrentControl) live(ctx context.Context, entries []domain.Entry) ([]domain.Entry, error) {
	if c.Tokens == nil {
		return entries, nil
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	out := entries[:0]
	for _, e := range entries {
		t, err := c.Tokens.GetByToken(ctx, e.SessionID)
		if err != nil {
			return nil, err
		}
		if t == nil || t.Expired(now) {
			c.Registry.Remove(e.SessionID)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
