package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/notecompanion/pipeline/internal/common"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")

	token, err := GenerateToken("u-123", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	userID, err := GetUserIDFromToken(token, secret)
	if err != nil {
		t.Fatalf("GetUserIDFromToken error: %v", err)
	}
	if userID != "u-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("u-123", []byte("secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := GetUserIDFromToken(token, []byte("other")); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("u-123", secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := GetUserIDFromToken(token, secret); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestGetUserIDFromToken_EmptyUserID(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetUserIDFromToken(token, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestGetUserIDFromToken_Garbage(t *testing.T) {
	if _, err := GetUserIDFromToken("not-a-token", []byte("secret")); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
