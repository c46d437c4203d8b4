package user

import (
	"context"
	"testing"

	"asr-auth/internal/user/domain"
	"asr-auth/internal/user/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlock(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "archer", PasswordHash: "x"}))
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u2", Username: "pam", PasswordHash: "x", Status: domain.UserStatusDisabled}))

	for i := 0; i < 3; i++ {
		_, err := repo.RecordFailedLogin(ctx, "archer", 3)
		require.NoError(t, err)
	}
	u, err := repo.GetByUsername(ctx, "archer")
	require.NoError(t, err)
	require.True(t, u.Locked())

	changed, err := Unlock(ctx, repo, "archer")
	require.NoError(t, err)
	assert.True(t, changed)
	u, err = repo.GetByUsername(ctx, "archer")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, u.Status)
	assert.Zero(t, u.FailedAttempts)

	changed, err = Unlock(ctx, repo, "archer")
	require.NoError(t, err)
	assert.False(t, changed, "already active")

	changed, err = Unlock(ctx, repo, "pam")
	require.NoError(t, err)
	assert.False(t, changed)
	u, err = repo.GetByUsername(ctx, "pam")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusDisabled, u.Status)

	_, err = Unlock(ctx, repo, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
