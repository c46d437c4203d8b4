package auth

import "time"

// Credentials is what a caller presents to authenticate: PasswordCredentials or TokenCredentials.
type Credentials interface {
	credentials()
}

// PasswordCredentials is a username/password pair submitted to the login endpoint.
type PasswordCredentials struct {
	Username string
	Password string
}

// TokenCredentials is a previously issued token plus the session key it was issued for.
type TokenCredentials struct {
	Token      string
	SessionKey string
}

func (PasswordCredentials) credentials() {}
func (TokenCredentials) credentials()    {}

// Principal is an authenticated identity. SessionID and SessionKey are empty until a token
// has been issued or resolved.
type Principal struct {
	Username    string    `json:"username"`
	Authorities []string  `json:"authorities"`
	SessionID   string    `json:"-"`
	SessionKey  string    `json:"session_key,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
