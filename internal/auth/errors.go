package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an authentication or authorization failure with a stable code and HTTP status.
type Error struct {
	Code    string
	Status  int
	Message string
	// Reported, when set, is the code shown to clients in place of Code.
	Reported string
}

func (e *Error) Error() string { return e.Message }

// PublicCode is the code safe to return to a client.
func (e *Error) PublicCode() string {
	if e.Reported != "" {
		return e.Reported
	}
	return e.Code
}

// Sentinel errors; compare with errors.Is and convert with Lookup at the transport boundary.
var (
	ErrMalformedRequest     = &Error{Code: "MALFORMED_REQUEST", Status: http.StatusBadRequest, Message: "malformed request"}
	ErrUserNotFound         = &Error{Code: "USER_NOT_FOUND", Status: http.StatusUnauthorized, Message: "bad credentials", Reported: "BAD_CREDENTIALS"}
	ErrBadCredentials       = &Error{Code: "BAD_CREDENTIALS", Status: http.StatusUnauthorized, Message: "bad credentials"}
	ErrAccountDisabled      = &Error{Code: "ACCOUNT_DISABLED", Status: http.StatusUnauthorized, Message: "account is disabled"}
	ErrAccountLocked        = &Error{Code: "ACCOUNT_LOCKED", Status: http.StatusUnauthorized, Message: "account is locked"}
	ErrCredentialsExpired   = &Error{Code: "CREDENTIALS_EXPIRED", Status: http.StatusUnauthorized, Message: "credentials have expired"}
	ErrTokenNotFound        = &Error{Code: "TOKEN_NOT_FOUND", Status: http.StatusUnauthorized, Message: "token is not valid"}
	ErrTokenExpired         = &Error{Code: "TOKEN_EXPIRED", Status: http.StatusUnauthorized, Message: "token has expired"}
	ErrTokenSessionMismatch = &Error{Code: "TOKEN_SESSION_MISMATCH", Status: http.StatusUnauthorized, Message: "token does not belong to this session"}
	ErrSessionLimitEvicted  = &Error{Code: "SESSION_LIMIT_EVICTED", Status: http.StatusUnauthorized, Message: "session ended by a newer login"}
	ErrAccessDenied         = &Error{Code: "ACCESS_DENIED", Status: http.StatusForbidden, Message: "access denied"}
	ErrUnauthenticated      = &Error{Code: "UNAUTHENTICATED", Status: http.StatusUnauthorized, Message: "authentication required"}
	ErrServiceUnavailable   = &Error{Code: "SERVICE_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "authentication service unavailable"}
	errInternal             = &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Message: "internal error"}
)

// unavailable marks a store or registry failure. Both ErrServiceUnavailable and cause match errors.Is.
func unavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, cause)
}

// Lookup returns the *Error carried by err. Errors outside the taxonomy map to an internal error.
func Lookup(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return errInternal
}
