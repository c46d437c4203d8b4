package domain

import (
	"testing"
	"time"
)

func TestUser_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid", User{Username: "archer", PasswordHash: "h"}, false},
		{"missing username", User{PasswordHash: "h"}, true},
		{"missing hash", User{Username: "archer"}, true},
		{"unknown status", User{Username: "archer", PasswordHash: "h", Status: "banned"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			err := u.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && u.Status != UserStatusActive {
				t.Errorf("Validate() should default status to active, got %q", u.Status)
			}
		})
	}
}

func TestUser_StatusFlags(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	u := &User{Status: UserStatusDisabled}
	if u.Enabled() {
		t.Error("disabled user should not be enabled")
	}
	u.Status = UserStatusLocked
	if !u.Enabled() || !u.Locked() {
		t.Error("locked user should be enabled and locked")
	}
	u.CredentialsExpireAt = &past
	if !u.CredentialsExpired(now) {
		t.Error("credentials in the past should be expired")
	}
	u.CredentialsExpireAt = &future
	if u.CredentialsExpired(now) {
		t.Error("credentials in the future should not be expired")
	}
	u.CredentialsExpireAt = nil
	if u.CredentialsExpired(now) {
		t.Error("nil expiry should never expire")
	}
}

func TestUser_HasAuthority(t *testing.T) {
	u := &User{Authorities: []string{"ROLE_USER", "ROLE_ADMIN"}}
	if !u.HasAuthority("ROLE_ADMIN") {
		t.Error("expected ROLE_ADMIN")
	}
	if u.HasAuthority("ROLE_ROOT") {
		t.Error("unexpected ROLE_ROOT")
	}
}
