package utils

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func init() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("uid-123", RoleCustomer)
	if err != nil {
		t.Fatalf("expected no error generating token, got: %v", err)
	}

	if token == "" {
		t.Fatal("expected non-empty token string")
	}

	// Verify the token has three parts (header.payload.signature)
	if dots := strings.Count(token, "."); dots != 2 {
		t.Errorf("expected JWT with 2 dots, got %d dots", dots)
	}
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken("uid-456", RoleAdmin)
	if err != nil {
		t.Fatalf("expected no error generating token, got: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("expected no error validating token, got: %v", err)
	}

	if claims.UID != "uid-456" {
		t.Errorf("expected uid uid-456, got %s", claims.UID)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("expected role %s, got %s", RoleAdmin, claims.Role)
	}
	if claims.Subject != "uid-456" {
		t.Errorf("expected subject uid-456, got %s", claims.Subject)
	}
}

func TestAdminTokenExpiresBeforeCustomerToken(t *testing.T) {
	adminToken, _ := GenerateToken("a", RoleAdmin)
	customerToken, _ := GenerateToken("c", RoleCustomer)

	admin, err := ValidateToken(adminToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	customer, err := ValidateToken(customerToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !admin.ExpiresAt.Before(customer.ExpiresAt.Time) {
		t.Errorf("expected admin token to expire first: admin=%v customer=%v", admin.ExpiresAt, customer.ExpiresAt)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	claims := Claims{
		UID:  "expired",
		Role: RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-secret-key-for-unit-tests"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	claims := Claims{
		UID:  "intruder",
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte("some-other-secret"))

	if _, err := ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestValidateTokenMissingUID(t *testing.T) {
	claims := Claims{
		Role: RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte("test-secret-key-for-unit-tests"))

	if _, err := ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for token without uid")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	token, err := GenerateToken("uid-1", "superuser")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRequiresExpiry(t *testing.T) {
	claims := Claims{UID: "forever", Role: RoleCustomer}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte("test-secret-key-for-unit-tests"))

	if _, err := ValidateToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
