package auth

import (
	"context"
	"errors"
	"time"

	"asr-auth/internal/security"
	"asr-auth/internal/session/registry"
	tokendomain "asr-auth/internal/token/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenStore is the part of the token store the service writes to.
type TokenStore interface {
	Replace(ctx context.Context, t *tokendomain.Token) (*tokendomain.Token, error)
	DeleteByToken(ctx context.Context, token string) error
}

// LoginResult is returned by a successful Login. Token is the raw value handed to the client.
type LoginResult struct {
	Principal  *Principal
	Token      string
	// TokenID identifies the token in logs and audit records without revealing it.
	TokenID    string
	SessionKey string
	ExpiresAt  time.Time
	// Evicted counts sessions ended by this login.
	Evicted int
}

// Service runs the login and logout flows: authentication, concurrent-session control and
// token issuance.
type Service struct {
	manager  *Manager
	tokens   TokenStore
	registry registry.Registry
	control  *registry.ConcurrentControl
	locker   *registry.Locker
	issuer   security.Issuer
	ttl      time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService returns a Service with the given dependencies.
func NewService(
	manager *Manager,
	tokens TokenStore,
	reg registry.Registry,
	control *registry.ConcurrentControl,
	locker *registry.Locker,
	issuer security.Issuer,
	ttl time.Duration,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		manager:  manager,
		tokens:   tokens,
		registry: reg,
		control:  control,
		locker:   locker,
		issuer:   issuer,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Login authenticates the password, then under the user's lock evicts older sessions and
// replaces the user's token record. An empty sessionKey gets a generated one.
func (s *Service) Login(ctx context.Context, username, password, sessionKey string) (*LoginResult, error) {
	p, err := s.manager.Authenticate(ctx, PasswordCredentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	unlock := s.locker.Lock(p.Username)
	defer unlock()

	now := s.now().UTC()
	issued, err := s.issuer.Issue(p.Username, sessionKey, s.ttl, now)
	if err != nil {
		return nil, err
	}
	digest := security.HashToken(issued.Value)

	evicted, err := s.control.OnAuthentication(ctx, p.Username, digest)
	if err != nil {
		if errors.Is(err, registry.ErrMaximumSessionsExceeded) {
			return nil, ErrSessionLimitEvicted
		}
		return nil, unavailable(err)
	}

	rec := &tokendomain.Token{
		Username:   p.Username,
		Token:      digest,
		SessionKey: sessionKey,
		ExpiresAt:  issued.ExpiresAt,
		CreatedAt:  now,
	}
	prev, err := s.tokens.Replace(ctx, rec)
	if err != nil {
		s.registry.Remove(digest)
		return nil, unavailable(err)
	}
	if prev != nil && prev.Token != digest {
		s.registry.ExpireNow(prev.Token)
	}

	p.SessionID = digest
	p.SessionKey = sessionKey
	p.ExpiresAt = issued.ExpiresAt
	s.log.WithFields(logrus.Fields{"username": p.Username, "token_id": issued.ID, "record_id": rec.ID}).Info("login succeeded")
	return &LoginResult{
		Principal:  p,
		Token:      issued.Value,
		TokenID:    issued.ID,
		SessionKey: sessionKey,
		ExpiresAt:  issued.ExpiresAt,
		Evicted:    len(evicted),
	}, nil
}

// Authenticate resolves a presented token and records the access on its session.
func (s *Service) Authenticate(ctx context.Context, token, sessionKey string) (*Principal, error) {
	p, err := s.manager.Authenticate(ctx, TokenCredentials{Token: token, SessionKey: sessionKey})
	if err != nil {
		return nil, err
	}
	s.registry.Touch(p.SessionID, s.now())
	return p, nil
}

// Logout deletes the principal's token record and forgets its session. Safe to repeat.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil || p.SessionID == "" {
		return nil
	}
	unlock := s.locker.Lock(p.Username)
	defer unlock()
	if err := s.tokens.DeleteByToken(ctx, p.SessionID); err != nil {
		return unavailable(err)
	}
	s.registry.Remove(p.SessionID)
	s.log.WithField("username", p.Username).Info("logout")
	return nil
}
