package user

import (
	"context"
	"errors"

	"asr-auth/internal/user/domain"
)

// ErrNotFound is returned by Unlock for an unknown username.
var ErrNotFound = errors.New("user not found")

// StatusSetter is the part of the user repository Unlock needs.
type StatusSetter interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	SetStatus(ctx context.Context, username string, status domain.UserStatus) error
}

// Unlock reactivates an account locked by repeated bad passwords and clears its counter.
// Disabled accounts stay disabled. It reports whether the status changed.
func Unlock(ctx context.Context, repo StatusSetter, username string) (bool, error) {
	u, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, ErrNotFound
	}
	if u.Status != domain.UserStatusLocked {
		return false, nil
	}
	return true, repo.SetStatus(ctx, username, domain.UserStatusActive)
}
