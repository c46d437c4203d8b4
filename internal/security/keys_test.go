package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func ecPair(t *testing.T, curve elliptic.Curve) (privPEM, pubPEM string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privPEM, pubPEM
}

func TestLoadPEM_InlineWithEscapedNewlines(t *testing.T) {
	escaped := strings.ReplaceAll(testPublicKeyPEM, "\n", `\n`)
	pemBytes, err := LoadPEM(escaped)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if string(pemBytes) != testPublicKeyPEM {
		t.Error("LoadPEM should turn escaped newlines into real ones")
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	for _, s := range []string{"", "   "} {
		if _, err := LoadPEM(s); err != ErrInvalidKey {
			t.Errorf("LoadPEM(%q): want ErrInvalidKey, got %v", s, err)
		}
	}
}

func TestLoadKeyPair_RSAFromFile(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "key.pem")
	pub := filepath.Join(dir, "pub.pem")
	if err := os.WriteFile(priv, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(pub, []byte(testPublicKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, key, err := LoadKeyPair(priv, pub)
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	m, err := signingMethod(key)
	if err != nil || m.Alg() != "RS256" {
		t.Errorf("signingMethod = %v, %v; want RS256", m, err)
	}
}

func TestLoadKeyPair_ES256SignsAndVerifies(t *testing.T) {
	privPEM, pubPEM := ecPair(t, elliptic.P256())
	signer, pub, err := LoadKeyPair(privPEM, strings.ReplaceAll(pubPEM, "\n", `\n`))
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	iss := NewJWTIssuer(signer, pub, "asr-auth", "asr-api")
	issued, err := iss.Issue("archer", "laptop", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Parse(issued.Value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.ID != issued.ID || claims.SessionKey != "laptop" {
		t.Errorf("claims = %+v", claims)
	}

	// An RS256 token is refused by an ES256 issuer even before the signature check.
	rsaIss, err := NewTestJWTIssuer()
	if err != nil {
		t.Fatalf("NewTestJWTIssuer: %v", err)
	}
	other, err := rsaIss.Issue("archer", "", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := iss.Check(other.Value); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Check foreign token: want ErrInvalidToken, got %v", err)
	}
}

func TestLoadKeyPair_Rejects(t *testing.T) {
	ecPriv, ecPub := ecPair(t, elliptic.P256())
	p384Priv, p384Pub := ecPair(t, elliptic.P384())

	testCases := []struct {
		name      string
		priv, pub string
		want      error
	}{
		{"mismatched pair", testPrivateKeyPEM, ecPub, ErrKeyMismatch},
		{"mismatched ec pair", ecPriv, testPublicKeyPEM, ErrKeyMismatch},
		{"public as private", testPublicKeyPEM, testPublicKeyPEM, ErrInvalidKey},
		{"private as public", testPrivateKeyPEM, testPrivateKeyPEM, ErrInvalidKey},
		{"unsupported curve", p384Priv, p384Pub, ErrInvalidKey},
		{"empty", "", testPublicKeyPEM, ErrInvalidKey},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := LoadKeyPair(tc.priv, tc.pub); !errors.Is(err, tc.want) {
				t.Errorf("LoadKeyPair: want %v, got %v", tc.want, err)
			}
		})
	}

	if _, _, err := LoadKeyPair("/nonexistent/key.pem", testPublicKeyPEM); err == nil {
		t.Error("LoadKeyPair missing file: want error")
	}
	if _, err := signingMethod(nil); err == nil {
		t.Error("signingMethod(nil): want error")
	}
}
