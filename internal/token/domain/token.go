package domain

import "time"

// Token is the persisted login token record. At most one exists per username.
type Token struct {
	ID       int64
	Username string
	// Token is the SHA-256 digest of the issued value; the raw value is only ever on the wire.
	Token      string
	SessionKey string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the record is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
