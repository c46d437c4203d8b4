// Package token holds background maintenance over the token store and session registry.
package token

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ExpiredDeleter removes token records whose expiry has passed.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Purger drops registry entries created before a cutoff.
type Purger interface {
	Purge(olderThan time.Time) int
}

// Sweeper periodically deletes expired token records and purges registry entries older than
// the token lifetime. Expiry is still enforced on read, so the sweep only reclaims space.
type Sweeper struct {
	Tokens   ExpiredDeleter
	Sessions Purger
	Interval time.Duration
	// TTL is the token lifetime; registry entries older than it cannot back a live token.
	TTL time.Duration
	Log logrus.FieldLogger
	Now func() time.Time
}

// Run sweeps every Interval until ctx is done. A non-positive Interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep. Store failures are logged; the next tick retries.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	fields := logrus.Fields{}
	if s.Tokens != nil {
		n, err := s.Tokens.DeleteExpired(ctx, now)
		if err != nil {
			if s.Log != nil {
				s.Log.WithError(err).Warn("token sweep failed")
			}
		} else {
			fields["tokens"] = n
		}
	}
	if s.Sessions != nil && s.TTL > 0 {
		fields["sessions"] = s.Sessions.Purge(now.Add(-s.TTL))
	}
	if s.Log != nil {
		s.Log.WithFields(fields).Debug("sweep finished")
	}
}
