package security

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxTokenLen bounds what Check accepts before any store lookup.
const maxTokenLen = 4096

var (
	// ErrInvalidToken is returned when a token is malformed, forged or signed by another key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a self-describing token carries a past expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Issued is a freshly minted token value.
type Issued struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Issuer mints login token values. The token store stays authoritative: Check only
// rejects values the issuer could never have produced.
type Issuer interface {
	Issue(username, sessionKey string, ttl time.Duration, now time.Time) (Issued, error)
	Check(value string) error
}

// OpaqueIssuer issues 256-bit random values.
type OpaqueIssuer struct{}

// NewOpaqueIssuer returns an Issuer for random opaque tokens.
func NewOpaqueIssuer() *OpaqueIssuer {
	return &OpaqueIssuer{}
}

// Issue returns a random URL-safe token expiring at now+ttl.
func (OpaqueIssuer) Issue(_, _ string, ttl time.Duration, now time.Time) (Issued, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return Issued{}, err
	}
	id, err := randomHex(16)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Value:     base64.RawURLEncoding.EncodeToString(b),
		ID:        id,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Check rejects empty and oversized values.
func (OpaqueIssuer) Check(value string) error {
	if value == "" || len(value) > maxTokenLen {
		return ErrInvalidToken
	}
	return nil
}

// TokenClaims holds JWT claims for a login token.
type TokenClaims struct {
	jwt.RegisteredClaims
	SessionKey string `json:"session_key"`
}

// JWTIssuer issues signed JWTs using RS256 or ES256 (private/public key).
type JWTIssuer struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewJWTIssuer returns an Issuer that signs with privateKey and verifies with publicKey.
// issuer and audience are set on claims and validated by Check.
func NewJWTIssuer(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *JWTIssuer {
	return &JWTIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// Issue returns a signed JWT for username carrying sessionKey, with a random jti.
func (p *JWTIssuer) Issue(username, sessionKey string, ttl time.Duration, now time.Time) (Issued, error) {
	jti, err := randomHex(16)
	if err != nil {
		return Issued{}, err
	}
	now = now.UTC()
	expiresAt := now.Add(ttl)
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionKey: sessionKey,
	}
	value, err := p.sign(claims)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Value: value, ID: jti, ExpiresAt: expiresAt}, nil
}

// Check validates signature, iss and aud. A past exp yields ErrTokenExpired.
func (p *JWTIssuer) Check(value string) error {
	_, err := p.Parse(value)
	return err
}

// Parse validates value and returns its claims.
func (p *JWTIssuer) Parse(value string) (*TokenClaims, error) {
	if value == "" || len(value) > maxTokenLen {
		return nil, ErrInvalidToken
	}
	method, err := signingMethod(p.publicKey)
	if err != nil {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(value, &TokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *JWTIssuer) sign(claims jwt.Claims) (string, error) {
	method, err := signingMethod(p.privateKey.Public())
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
