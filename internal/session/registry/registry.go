// Package registry tracks authenticated sessions per principal and enforces the
// concurrent-session policy applied at login.
package registry

import (
	"sort"
	"sync"
	"time"

	"asr-auth/internal/session/domain"
)

// Registry tracks sessions per principal.
type Registry interface {
	Register(principal, sessionID string)
	Remove(sessionID string)
	// ActiveSessions returns the principal's non-expired sessions, oldest first.
	ActiveSessions(principal string) []domain.Entry
	Get(sessionID string) (domain.Entry, bool)
	// ExpireNow marks the session expired but keeps it so later requests can learn why it ended.
	ExpireNow(sessionID string)
	Touch(sessionID string, at time.Time)
	Principals() []string
	// Purge drops entries created before olderThan and returns how many were dropped.
	Purge(olderThan time.Time) int
}

// MemoryRegistry is a process-wide registry shared by every request. All fields are
// guarded by mu; readers take the read lock.
type MemoryRegistry struct {
	mu          sync.RWMutex
	sessions    map[string]*domain.Entry
	byPrincipal map[string]map[string]struct{}
	now         func() time.Time
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions:    make(map[string]*domain.Entry),
		byPrincipal: make(map[string]map[string]struct{}),
		now:         time.Now,
	}
}

func (r *MemoryRegistry) Register(principal, sessionID string) {
	now := r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID)
	r.sessions[sessionID] = &domain.Entry{Principal: principal, SessionID: sessionID, CreatedAt: now, LastAccessAt: now}
	ids, ok := r.byPrincipal[principal]
	if !ok {
		ids = make(map[string]struct{})
		r.byPrincipal[principal] = ids
	}
	ids[sessionID] = struct{}{}
}

func (r *MemoryRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID)
}

func (r *MemoryRegistry) removeLocked(sessionID string) {
	e, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if ids := r.byPrincipal[e.Principal]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(r.byPrincipal, e.Principal)
		}
	}
}

func (r *MemoryRegistry) ActiveSessions(principal string) []domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Entry
	for id := range r.byPrincipal[principal] {
		if e := r.sessions[id]; !e.Expired {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryRegistry) Get(sessionID string) (domain.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return domain.Entry{}, false
	}
	return *e, true
}

func (r *MemoryRegistry) ExpireNow(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sessionID]; ok {
		e.Expired = true
	}
}

func (r *MemoryRegistry) Touch(sessionID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sessionID]; ok && at.After(e.LastAccessAt) {
		e.LastAccessAt = at.UTC()
	}
}

// Principals returns every principal with at least one non-expired session, sorted.
func (r *MemoryRegistry) Principals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byPrincipal))
	for p, ids := range r.byPrincipal {
		for id := range ids {
			if !r.sessions[id].Expired {
				out = append(out, p)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRegistry) Purge(olderThan time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if e.CreatedAt.Before(olderThan) {
			r.removeLocked(id)
			n++
		}
	}
	return n
}
