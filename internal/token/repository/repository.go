package repository

import (
	"context"
	"errors"
	"time"

	"asr-auth/internal/token/domain"
)

var (
	// ErrExpiresInPast is returned by Replace for a record whose expiry is not in the future.
	ErrExpiresInPast = errors.New("token expiry must be in the future")
	// ErrTokenConflict is returned by Replace when the token value already belongs to another user.
	ErrTokenConflict = errors.New("token value already in use")
)

// Store persists token records keyed by username.
type Store interface {
	// Replace removes any record for t.Username and inserts t, assigning t.ID.
	// It returns the record that was replaced, or nil.
	Replace(ctx context.Context, t *domain.Token) (*domain.Token, error)
	// GetByToken returns the record for the stored token digest, or nil if not found.
	// Expired records are returned as-is; callers decide how to treat them.
	GetByToken(ctx context.Context, token string) (*domain.Token, error)
	GetByUsername(ctx context.Context, username string) (*domain.Token, error)
	DeleteByUsername(ctx context.Context, username string) error
	DeleteByToken(ctx context.Context, token string) error
	// DeleteExpired removes every record expired at now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func validate(t *domain.Token, now time.Time) error {
	if t.Username == "" || t.Token == "" {
		return errors.New("token record needs username and token")
	}
	if t.Expired(now) {
		return ErrExpiresInPast
	}
	return nil
}
