// Package user holds account maintenance shared by cmd/seed and the in-memory server mode.
package user

import (
	"context"
	"errors"
	"time"

	"asr-auth/internal/security"
	"asr-auth/internal/user/domain"
	"asr-auth/internal/user/repository"
)

// Development credentials. Never seeded when APP_ENV=production.
const (
	DevPassword = "password123"
	DevUser     = "dev"
	DevAdmin    = "admin"
)

// Creator is the part of the user repository seeding needs.
type Creator interface {
	Create(ctx context.Context, u *domain.User) error
}

// SeedDevUsers creates the development user and admin. Existing usernames are skipped, so it
// is safe to run repeatedly. It returns how many users were created.
func SeedDevUsers(ctx context.Context, repo Creator, hasher *security.Hasher) (int, error) {
	hash, err := hasher.Hash([]byte(DevPassword))
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	users := []*domain.User{
		{ID: "dev-user-001", Username: DevUser, PasswordHash: hash, Authorities: []string{"ROLE_USER"}, CreatedAt: now, UpdatedAt: now},
		{ID: "dev-admin-001", Username: DevAdmin, PasswordHash: hash, Authorities: []string{"ROLE_ADMIN", "ROLE_USER"}, CreatedAt: now, UpdatedAt: now},
	}
	created := 0
	for _, u := range users {
		err := repo.Create(ctx, u)
		if errors.Is(err, repository.ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
