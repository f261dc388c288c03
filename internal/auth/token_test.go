// ABOUTME: Tests for JWT identity token verification
// ABOUTME: Covers round trips, expiry, wrong secrets and context carry

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerify_RoundTrip(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID mismatch: got %q", userID)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("user-123", -time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	other := NewJWTVerifier([]byte("other-secret"))

	token, err := v.Generate("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	if _, err := v.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := TokenFromContext(ctx); ok {
		t.Error("empty context should carry no token")
	}

	ctx = WithToken(ctx, "abc")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "abc" {
		t.Errorf("token not carried: %q, %v", token, ok)
	}

	if _, ok := TokenFromContext(WithToken(context.Background(), "")); ok {
		t.Error("blank token should read as absent")
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Error("empty context should carry no user ID")
	}

	v := NewJWTVerifier([]byte("test-secret"))
	token, err := v.Generate("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	ctx = WithUserID(WithToken(ctx, token), userID)
	got, ok := UserIDFromContext(ctx)
	if !ok || got != "user-123" {
		t.Errorf("user ID not carried: %q, %v", got, ok)
	}
}
