package repository

import (
	"context"
	"sync"

	"asr-auth/internal/audit/domain"
)

// MemoryRepository keeps audit logs in insertion order.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	c := *a
	r.mu.Lock()
	r.entries = append(r.entries, &c)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) ListByUsername(_ context.Context, username string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.AuditLog
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if e := r.entries[i]; username == "" || e.Username == username {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}
