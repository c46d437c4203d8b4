package auth

import (
	"time"

	"asr-auth/internal/security"
	"asr-auth/internal/session/registry"

	"github.com/sirupsen/logrus"
)

// Tokens is the token store as the whole login pipeline uses it.
type Tokens interface {
	TokenReader
	TokenStore
}

// Options tunes Wire. Zero values give a one-hour token, no lockout and last-login-wins.
type Options struct {
	TTL                     time.Duration
	LockoutThreshold        int
	PreventLoginWhenMaximum bool
	Log                     logrus.FieldLogger
}

// Wire assembles the token and password providers, the concurrent-session control with a
// maximum of one session and the Service over the given stores.
func Wire(users UserRepo, tokens Tokens, reg registry.Registry, issuer security.Issuer, hasher *security.Hasher, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	manager := NewManager(
		&TokenProvider{Tokens: tokens, Users: users, Sessions: reg, Issuer: issuer},
		&PasswordProvider{Users: users, Hasher: hasher, LockoutThreshold: opts.LockoutThreshold, Log: opts.Log},
	)
	control := &registry.ConcurrentControl{
		Registry:                reg,
		Tokens:                  tokens,
		MaxSessions:             1,
		PreventLoginWhenMaximum: opts.PreventLoginWhenMaximum,
		Log:                     opts.Log,
	}
	return NewService(manager, tokens, reg, control, registry.NewLocker(), issuer, opts.TTL, opts.Log)
}
