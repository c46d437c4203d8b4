package repository

import (
	"context"
	"errors"

	"asr-auth/internal/user/domain"
)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Repository defines persistence for users.
type Repository interface {
	// GetByUsername returns the user with its authorities, or nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// RecordFailedLogin increments the failed-attempt counter and locks the account once it
	// reaches threshold. threshold <= 0 never locks. Returns whether the account is now locked.
	RecordFailedLogin(ctx context.Context, username string, threshold int) (bool, error)
	// ResetFailedLogins clears the failed-attempt counter after a successful login.
	ResetFailedLogins(ctx context.Context, username string) error
	// SetStatus changes the account status (e.g. to unlock or disable it).
	SetStatus(ctx context.Context, username string, status domain.UserStatus) error
}
