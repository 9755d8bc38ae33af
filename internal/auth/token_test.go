package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tk := NewTokens("test-secret")

	signed, err := tk.Issue("user-123")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	userID, err := tk.Verify(signed)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("subject = %q, want %q", userID, "user-123")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a").Issue("user-123")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := NewTokens("secret-b").Verify(signed); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	tk := NewTokens("test-secret")

	past := time.Now().UTC().Add(-time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		IssuedAt:  jwt.NewNumericDate(past.Add(-tokenTTL)),
		ExpiresAt: jwt.NewNumericDate(past),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tk.secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := tk.Verify(signed); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenGarbage(t *testing.T) {
	tk := NewTokens("test-secret")
	if _, err := tk.Verify("not-a-token"); err == nil {
		t.Error("expected garbage token to be rejected")
	}
}
