package domain

import "time"

// Entry is one authenticated session held by the registry. SessionID is the stored digest of
// the token issued for the login that created it.
type Entry struct {
	Principal    string
	SessionID    string
	CreatedAt    time.Time
	LastAccessAt time.Time
	// Expired is set when the session was evicted by a newer login or ended by logout.
	Expired bool
}
