package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type testClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func signAssertion(t *testing.T, key *rsa.PrivateKey, kid string, claims testClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign assertion: %v", err)
	}
	return signed
}

func baseClaims(email string) testClaims {
	return testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Audience:  jwt.ClaimStrings{"client-1"},
			Subject:   "subject-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name:    "Sakila Kumari",
		Email:   email,
		Picture: "https://example.com/p.png",
	}
}

func newJWKSServer(t *testing.T, kid string, pub rsa.PublicKey) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewVerifierRequiresClientID(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatalf("expected missing client id to fail")
	}
}

func TestVerifyExtractsProfile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := newJWKSServer(t, "kid-1", key.PublicKey)
	defer jwks.Close()

	v, err := NewVerifier(Config{ClientID: "client-1", JWKSURL: jwks.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	id, err := v.Verify(signAssertion(t, key, "kid-1", baseClaims("sakila@example.com")))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Email != "sakila@example.com" || id.Name != "Sakila Kumari" || id.Picture == "" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRefreshesKeysOnRotation(t *testing.T) {
	key1, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key1: %v", err)
	}
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key2: %v", err)
	}

	// The served key set is mutable so the test can rotate it mid-flight.
	activeKid := "kid-1"
	activePub := key1.PublicKey
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		resp := map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": activeKid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(activePub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(activePub.E)).Bytes()),
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer jwks.Close()

	v, err := NewVerifier(Config{ClientID: "client-1", JWKSURL: jwks.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.Verify(signAssertion(t, key1, "kid-1", baseClaims("sakila@example.com"))); err != nil {
		t.Fatalf("verify with initial key: %v", err)
	}

	// Rotate: the cached set still holds only kid-1, so the unknown kid
	// must trigger a refetch before the parse is retried.
	activeKid = "kid-2"
	activePub = key2.PublicKey

	id, err := v.Verify(signAssertion(t, key2, "kid-2", baseClaims("sakila@example.com")))
	if err != nil {
		t.Fatalf("verify after rotation: %v", err)
	}
	if id.Email != "sakila@example.com" {
		t.Fatalf("unexpected identity after rotation: %+v", id)
	}

	// A kid the provider never served still fails after the refresh.
	if _, err := v.Verify(signAssertion(t, key1, "kid-gone", baseClaims("sakila@example.com"))); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for unknown kid, got %v", err)
	}
}

func TestVerifyRejectsMalformedAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := newJWKSServer(t, "kid-1", key.PublicKey)
	defer jwks.Close()

	v, err := NewVerifier(Config{ClientID: "client-1", JWKSURL: jwks.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.Verify("not-a-token"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := newJWKSServer(t, "kid-1", key.PublicKey)
	defer jwks.Close()

	v, err := NewVerifier(Config{ClientID: "client-1", JWKSURL: jwks.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	claims := baseClaims("sakila@example.com")
	claims.Audience = jwt.ClaimStrings{"someone-else"}
	if _, err := v.Verify(signAssertion(t, key, "kid-1", claims)); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for wrong audience, got %v", err)
	}
}

func TestVerifyRejectsMissingEmail(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := newJWKSServer(t, "kid-1", key.PublicKey)
	defer jwks.Close()

	v, err := NewVerifier(Config{ClientID: "client-1", JWKSURL: jwks.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	claims := baseClaims("")
	if _, err := v.Verify(signAssertion(t, key, "kid-1", claims)); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for missing email, got %v", err)
	}
}
