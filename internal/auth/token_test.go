package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	user := &domain.User{
		ID:    "user-1",
		Email: "dana@example.com",
		Role:  domain.RoleClient,
	}

	token, expiresAt, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != user.ID || claims.Email != user.Email || claims.Role != user.Role {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	user := &domain.User{ID: "user-1", Email: "dana@example.com", Role: domain.RoleClient}
	token, _, err := NewTokenManager("secret-a", 30).GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 30).ParseToken(token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	if _, err := tm.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestTokenManagerDefaultTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	user := &domain.User{ID: "user-1", Email: "dana@example.com", Role: domain.RoleAgent}
	_, expiresAt, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if until := time.Until(expiresAt); until < 55*time.Minute || until > 65*time.Minute {
		t.Fatalf("expected ~60m default TTL, got %v", until)
	}
}
