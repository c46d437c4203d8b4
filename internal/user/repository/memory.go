package repository

import (
	"context"
	"sync"
	"time"

	"asr-auth/internal/user/domain"
)

// MemoryRepository keeps users in a map. Used when no database is configured and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*domain.User)}
}

// GetByUsername returns a copy of the stored user, or nil if not found.
func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (r *MemoryRepository) Create(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return ErrUsernameTaken
	}
	r.users[u.Username] = clone(u)
	return nil
}

func (r *MemoryRepository) RecordFailedLogin(_ context.Context, username string, threshold int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return false, nil
	}
	u.FailedAttempts++
	if threshold > 0 && u.FailedAttempts >= threshold && u.Status == domain.UserStatusActive {
		u.Status = domain.UserStatusLocked
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Locked(), nil
}

func (r *MemoryRepository) ResetFailedLogins(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok && u.FailedAttempts != 0 {
		u.FailedAttempts = 0
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, username string, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		u.Status = status
		u.FailedAttempts = 0
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.Authorities = append([]string(nil), u.Authorities...)
	if u.CredentialsExpireAt != nil {
		t := *u.CredentialsExpireAt
		c.CredentialsExpireAt = &t
	}
	return &c
}
