package auth

import (
	"context"
	"errors"
	"time"

	"asr-auth/internal/security"
	sessiondomain "asr-auth/internal/session/domain"
	tokendomain "asr-auth/internal/token/domain"
	userdomain "asr-auth/internal/user/domain"

	"github.com/sirupsen/logrus"
)

var errUnsupportedCredentials = errors.New("no provider supports these credentials")

// Provider authenticates one kind of Credentials.
type Provider interface {
	Supports(c Credentials) bool
	Authenticate(ctx context.Context, c Credentials) (*Principal, error)
}

// Manager delegates to the first provider that supports the presented credentials.
type Manager struct {
	providers []Provider
}

// NewManager returns a Manager trying providers in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

func (m *Manager) Authenticate(ctx context.Context, c Credentials) (*Principal, error) {
	for _, p := range m.providers {
		if p.Supports(c) {
			return p.Authenticate(ctx, c)
		}
	}
	return nil, errUnsupportedCredentials
}

// UserRepo is the minimal user repository needed by the providers.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	RecordFailedLogin(ctx context.Context, username string, threshold int) (bool, error)
	ResetFailedLogins(ctx context.Context, username string) error
}

// PasswordProvider checks a username and password against the stored bcrypt hash and the
// account's state flags.
type PasswordProvider struct {
	Users  UserRepo
	Hasher *security.Hasher
	// LockoutThreshold locks the account after that many consecutive bad passwords. Zero never locks.
	LockoutThreshold int
	Log              logrus.FieldLogger
	Now              func() time.Time
}

func (p *PasswordProvider) Supports(c Credentials) bool {
	_, ok := c.(PasswordCredentials)
	return ok
}

// Authenticate verifies the password before looking at account state, so an account's
// state is only revealed to a caller that knows the password.
func (p *PasswordProvider) Authenticate(ctx context.Context, c Credentials) (*Principal, error) {
	creds, ok := c.(PasswordCredentials)
	if !ok {
		return nil, errUnsupportedCredentials
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrBadCredentials
	}
	u, err := p.Users.GetByUsername(ctx, creds.Username)
	if err != nil {
		return nil, unavailable(err)
	}
	if u == nil {
		_ = p.Hasher.CompareDummy([]byte(creds.Password))
		return nil, ErrUserNotFound
	}
	if err := p.Hasher.Compare(u.PasswordHash, []byte(creds.Password)); err != nil {
		if p.LockoutThreshold > 0 {
			locked, err := p.Users.RecordFailedLogin(ctx, u.Username, p.LockoutThreshold)
			if err != nil {
				return nil, unavailable(err)
			}
			if locked && !u.Locked() && p.Log != nil {
				p.Log.WithField("username", u.Username).Warn("account locked after repeated bad passwords")
			}
		}
		return nil, ErrBadCredentials
	}
	if err := checkAccount(u, now(p.Now)); err != nil {
		return nil, err
	}
	if u.FailedAttempts > 0 {
		if err := p.Users.ResetFailedLogins(ctx, u.Username); err != nil {
			return nil, unavailable(err)
		}
	}
	return &Principal{Username: u.Username, Authorities: u.Authorities}, nil
}

func checkAccount(u *userdomain.User, at time.Time) error {
	switch {
	case !u.Enabled():
		return ErrAccountDisabled
	case u.Locked():
		return ErrAccountLocked
	case u.CredentialsExpired(at):
		return ErrCredentialsExpired
	}
	return nil
}

// TokenReader resolves stored token records by digest.
type TokenReader interface {
	GetByToken(ctx context.Context, token string) (*tokendomain.Token, error)
}

// SessionLookup reports what the registry knows about a session.
type SessionLookup interface {
	Get(sessionID string) (sessiondomain.Entry, bool)
}

// TokenProvider resolves a presented token through the token store. The store is
// authoritative: a well-formed signed token with no stored record does not authenticate.
type TokenProvider struct {
	Tokens   TokenReader
	Users    UserRepo
	Sessions SessionLookup
	Issuer   security.Issuer
	Now      func() time.Time
}

func (p *TokenProvider) Supports(c Credentials) bool {
	_, ok := c.(TokenCredentials)
	return ok
}

func (p *TokenProvider) Authenticate(ctx context.Context, c Credentials) (*Principal, error) {
	creds, ok := c.(TokenCredentials)
	if !ok {
		return nil, errUnsupportedCredentials
	}
	if creds.Token == "" {
		return nil, ErrTokenNotFound
	}
	if p.Issuer != nil {
		if err := p.Issuer.Check(creds.Token); err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, ErrTokenNotFound
		}
	}

	digest := security.HashToken(creds.Token)
	rec, err := p.Tokens.GetByToken(ctx, digest)
	if err != nil {
		return nil, unavailable(err)
	}
	if rec == nil {
		if p.Sessions != nil {
			if e, ok := p.Sessions.Get(digest); ok && e.Expired {
				return nil, ErrSessionLimitEvicted
			}
		}
		return nil, ErrTokenNotFound
	}
	if !security.TokenHashEqual(creds.Token, rec.Token) {
		return nil, ErrTokenNotFound
	}
	at := now(p.Now)
	if rec.Expired(at) {
		return nil, ErrTokenExpired
	}
	if rec.SessionKey != "" && creds.SessionKey != rec.SessionKey {
		return nil, ErrTokenSessionMismatch
	}

	u, err := p.Users.GetByUsername(ctx, rec.Username)
	if err != nil {
		return nil, unavailable(err)
	}
	if u == nil {
		return nil, ErrTokenNotFound
	}
	if err := checkAccount(u, at); err != nil {
		return nil, err
	}
	return &Principal{
		Username:    u.Username,
		Authorities: u.Authorities,
		SessionID:   digest,
		SessionKey:  rec.SessionKey,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock()
	}
	return time.Now()
}
