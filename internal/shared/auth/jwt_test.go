package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignJWT(Claims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, secret)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := VerifyJWT(token, secret)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecretAndExpired(t *testing.T) {
	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, []byte("a"))
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token, []byte("b")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, []byte("a"))
	if err != nil {
		t.Fatalf("SignJWT expired: %v", err)
	}
	if _, err := VerifyJWT(expired, []byte("a")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestSecretRequiredInProduction(t *testing.T) {
	if _, err := Secret("production", ""); err == nil {
		t.Fatalf("expected error without secret in production")
	}
	secret, err := Secret("dev", "")
	if err != nil || string(secret) != "dev-secret" {
		t.Fatalf("expected dev fallback secret, got %q err=%v", secret, err)
	}
}
