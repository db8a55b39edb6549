package utils

import (
	"testing"
	"time"
)

func TestJWT(t *testing.T) {
	secret := "supersecret"
	userID := "123"
	role := RoleStudent

	token, err := GenerateToken(userID, role, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}

	if claims.Role != role {
		t.Errorf("Expected Role %s, got %s", role, claims.Role)
	}

	_, err = ValidateToken(token, "wrongsecret")
	if err == nil {
		t.Errorf("Expected error with wrong secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token, err := GenerateTokenWithTTL("7", RoleAdmin, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Errorf("Expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsMissingUser(t *testing.T) {
	token, err := GenerateToken("", RoleStudent, "secret")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Errorf("Expected token without user id to be rejected")
	}
}
