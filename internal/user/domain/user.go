package domain

import (
	"errors"
	"time"
)

// User is an account that can log in with a username and password.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	// Authorities are role or permission names granted to the user (e.g. ROLE_ADMIN).
	Authorities    []string
	Status         UserStatus
	FailedAttempts int
	// CredentialsExpireAt is when the password stops being accepted; nil means never.
	CredentialsExpireAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
	UserStatusLocked   UserStatus = "locked"
)

// Enabled reports whether the account may authenticate at all.
func (u *User) Enabled() bool {
	return u.Status != UserStatusDisabled
}

// Locked reports whether the account is locked out.
func (u *User) Locked() bool {
	return u.Status == UserStatusLocked
}

// CredentialsExpired reports whether the password has expired at now.
func (u *User) CredentialsExpired(now time.Time) bool {
	return u.CredentialsExpireAt != nil && !now.Before(*u.CredentialsExpireAt)
}

// HasAuthority reports whether the user was granted authority.
func (u *User) HasAuthority(authority string) bool {
	for _, a := range u.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	switch u.Status {
	case UserStatusActive, UserStatusDisabled, UserStatusLocked:
	default:
		return errors.New("unknown user status")
	}
	return nil
}
