// Package health reports readiness for the HTTP /healthz route and the gRPC health service.
package health

import (
	"context"

	"github.com/pkg/errors"
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the authorization engine can evaluate (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker combines the optional readiness probes. Nil probes are skipped, so a process
// running on the in-memory stores is ready as soon as it starts.
type Checker struct {
	Pinger        Pinger
	PolicyChecker PolicyChecker
}

// Check returns nil when every configured probe succeeds.
func (c *Checker) Check(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.Pinger != nil {
		if err := c.Pinger.PingContext(ctx); err != nil {
			return errors.Wrap(err, "database")
		}
	}
	if c.PolicyChecker != nil {
		if err := c.PolicyChecker.HealthCheck(ctx); err != nil {
			return errors.Wrap(err, "policy")
		}
	}
	return nil
}
