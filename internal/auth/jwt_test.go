package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("u1", "parent@example.com", "secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "parent@example.com" {
		t.Errorf("claims = %q, %q", claims.UserID, claims.Email)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("u1", "parent@example.com", "secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	if _, err := ValidateToken("not-a-token", "secret"); err == nil {
		t.Error("expected validation failure for malformed token")
	}
}
