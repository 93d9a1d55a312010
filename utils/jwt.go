package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	customerTokenTTL = 24 * time.Hour
	adminTokenTTL    = 2 * time.Hour
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("FATAL: JWT_SECRET environment variable is not set. Refusing to start with an insecure configuration.")
	}
	return secret
}

// GenerateToken signs a token for uid. Admin tokens expire sooner than
// customer session tokens.
func GenerateToken(uid, role string) (string, error) {
	secret := getJWTSecret()

	ttl := customerTokenTTL
	if role == RoleAdmin {
		ttl = adminTokenTTL
	}

	now := time.Now()
	claims := Claims{
		UID:  uid,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "storefront-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken returns the claims of a token signed by GenerateToken. Every
// failure wraps ErrInvalidToken.
func ValidateToken(tokenString string) (*Claims, error) {
	secret := []byte(getJWTSecret())

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UID == "" || (claims.Role != RoleCustomer && claims.Role != RoleAdmin) {
		return nil, fmt.Errorf("%w: missing uid or role", ErrInvalidToken)
	}
	return claims, nil
}
