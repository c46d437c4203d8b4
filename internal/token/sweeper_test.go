package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"asr-auth/internal/logger"
	"asr-auth/internal/session/registry"
	"asr-auth/internal/token/domain"
	"asr-auth/internal/token/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	base := time.Now()
	store := repository.NewMemoryStore()
	_, err := store.Replace(ctx, &domain.Token{Username: "archer", Token: "d1", SessionKey: "k", ExpiresAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.Replace(ctx, &domain.Token{Username: "lana", Token: "d2", SessionKey: "k", ExpiresAt: base.Add(3 * time.Hour)})
	require.NoError(t, err)

	reg := registry.NewMemoryRegistry()
	reg.Register("archer", "d1")
	reg.Register("lana", "d2")

	later := func() time.Time { return base.Add(2 * time.Hour) }

	// A long TTL keeps registry entries that may still back a live token.
	s := &Sweeper{Tokens: store, Sessions: reg, Interval: time.Minute, TTL: 4 * time.Hour, Log: logger.Discard(), Now: later}
	s.SweepOnce(ctx)

	rec, err := store.GetByToken(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = store.GetByToken(ctx, "d2")
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, []string{"archer", "lana"}, reg.Principals())

	s.TTL = time.Hour
	s.SweepOnce(ctx)
	_, ok := reg.Get("d1")
	assert.False(t, ok)
	_, ok = reg.Get("d2")
	assert.False(t, ok)
}

type failingDeleter struct{ calls int }

func (f *failingDeleter) DeleteExpired(context.Context, time.Time) (int64, error) {
	f.calls++
	return 0, errors.New("connection reset")
}

func TestRun_StopsOnCancel(t *testing.T) {
	d := &failingDeleter{}
	s := &Sweeper{Tokens: d, Interval: 5 * time.Millisecond, Log: logger.Discard()}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Positive(t, d.calls)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	(&Sweeper{}).Run(context.Background())
}
