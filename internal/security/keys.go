package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidKey is returned when PEM is missing or holds no usable key.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyMismatch is returned when the public key does not belong to the private key.
	ErrKeyMismatch = errors.New("public key does not match private key")
)

// LoadPEM reads content from path if s does not look like inline PEM; otherwise returns s as bytes.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		// env files usually carry PEM on one line with escaped newlines
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// LoadKeyPair parses the JWT signing pair. Each source may be inline PEM or a file path.
// Only RSA and ECDSA P-256 keys are accepted, and the public key must match the private one.
func LoadKeyPair(privateSrc, publicSrc string) (crypto.Signer, crypto.PublicKey, error) {
	privPEM, err := LoadPEM(privateSrc)
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := LoadPEM(publicSrc)
	if err != nil {
		return nil, nil, err
	}
	signer, err := parseSigner(privPEM)
	if err != nil {
		return nil, nil, err
	}
	pub, err := parsePublic(pubPEM)
	if err != nil {
		return nil, nil, err
	}
	type equaler interface{ Equal(crypto.PublicKey) bool }
	if eq, ok := signer.Public().(equaler); !ok || !eq.Equal(pub) {
		return nil, nil, ErrKeyMismatch
	}
	return signer, pub, nil
}

func parseSigner(pemBytes []byte) (crypto.Signer, error) {
	if k, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	k, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil || k.Curve != elliptic.P256() {
		return nil, ErrInvalidKey
	}
	return k, nil
}

func parsePublic(pemBytes []byte) (crypto.PublicKey, error) {
	if k, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	k, err := jwt.ParseECPublicKeyFromPEM(pemBytes)
	if err != nil || k.Curve != elliptic.P256() {
		return nil, ErrInvalidKey
	}
	return k, nil
}

// signingMethod picks RS256 or ES256 from the key type.
func signingMethod(pub crypto.PublicKey) (jwt.SigningMethod, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		return jwt.SigningMethodES256, nil
	default:
		return nil, ErrInvalidKey
	}
}
