package repository

import (
	"context"
	"sync"
	"time"

	"asr-auth/internal/token/domain"
)

// MemoryStore keeps token records in two maps guarded by one RWMutex. Reads take the read lock only.
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*domain.Token
	byToken    map[string]*domain.Token
	nextID     int64
	now        func() time.Time
}

// NewMemoryStore returns an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUsername: make(map[string]*domain.Token),
		byToken:    make(map[string]*domain.Token),
		now:        time.Now,
	}
}

func (s *MemoryStore) Replace(_ context.Context, t *domain.Token) (*domain.Token, error) {
	if err := validate(t, s.now()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byToken[t.Token]; ok && owner.Username != t.Username {
		return nil, ErrTokenConflict
	}
	previous := s.byUsername[t.Username]
	if previous != nil {
		delete(s.byToken, previous.Token)
	}
	s.nextID++
	t.ID = s.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	stored := *t
	s.byUsername[t.Username] = &stored
	s.byToken[t.Token] = &stored
	if previous == nil {
		return nil, nil
	}
	prev := *previous
	return &prev, nil
}

func (s *MemoryStore) GetByToken(_ context.Context, token string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byToken[token]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) DeleteByUsername(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byUsername[username]; ok {
		delete(s.byToken, t.Token)
		delete(s.byUsername, username)
	}
	return nil
}

func (s *MemoryStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byToken[token]; ok {
		delete(s.byUsername, t.Username)
		delete(s.byToken, token)
	}
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for username, t := range s.byUsername {
		if t.Expired(now) {
			delete(s.byToken, t.Token)
			delete(s.byUsername, username)
			n++
		}
	}
	return n, nil
}
