package repository

import (
	"context"
	"testing"

	"asr-auth/internal/user/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	u := &domain.User{ID: "u1", Username: "archer", PasswordHash: "hash", Authorities: []string{"ROLE_USER"}}
	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, u), ErrUsernameTaken)

	got, err := repo.GetByUsername(ctx, "archer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.UserStatusActive, got.Status)

	got.Authorities[0] = "ROLE_ADMIN"
	again, _ := repo.GetByUsername(ctx, "archer")
	assert.Equal(t, "ROLE_USER", again.Authorities[0], "returned users must be copies")

	missing, err := repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_Lockout(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "archer", PasswordHash: "hash"}))

	for i := 0; i < 2; i++ {
		locked, err := repo.RecordFailedLogin(ctx, "archer", 3)
		require.NoError(t, err)
		assert.False(t, locked)
	}
	locked, err := repo.RecordFailedLogin(ctx, "archer", 3)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, repo.SetStatus(ctx, "archer", domain.UserStatusActive))
	u, _ := repo.GetByUsername(ctx, "archer")
	assert.False(t, u.Locked())
	assert.Zero(t, u.FailedAttempts)
}

func TestMemory_NoThresholdNeverLocks(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "archer", PasswordHash: "hash"}))
	for i := 0; i < 10; i++ {
		locked, err := repo.RecordFailedLogin(ctx, "archer", 0)
		require.NoError(t, err)
		assert.False(t, locked)
	}
	require.NoError(t, repo.ResetFailedLogins(ctx, "archer"))
	u, _ := repo.GetByUsername(ctx, "archer")
	assert.Zero(t, u.FailedAttempts)
}
