package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/model"
)

var testUser = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, testUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("expected user_id 1, got %d", claims.UserID)
	}
	if claims.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Errorf("expected UUID token id, got %q", claims.ID)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	a, _ := GenerateToken("s", testUser)
	b, _ := GenerateToken("s", testUser)
	ca, _ := ValidateToken("s", a)
	cb, _ := ValidateToken("s", b)
	if ca.ID == cb.ID {
		t.Errorf("expected distinct token ids, got %q twice", ca.ID)
	}
}

func TestGenerateTokenEmptySecret(t *testing.T) {
	if _, err := GenerateToken("", testUser); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret1", testUser)

	if _, err := ValidateToken("secret2", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))

	if _, err := ValidateToken("s", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))

	if _, err := ValidateToken("s", token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestTokenExpiry(t *testing.T) {
	token, _ := GenerateToken("test", testUser)
	claims, _ := ValidateToken("test", token)

	diff := time.Until(claims.ExpiresAt.Time) - TokenExpiry
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to be rejected")
	}
}

func TestGeneratePassword(t *testing.T) {
	p, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(p) != 16 {
		t.Errorf("expected 16 characters, got %d", len(p))
	}
	q, _ := GeneratePassword(16)
	if p == q {
		t.Error("expected different passwords")
	}
}
