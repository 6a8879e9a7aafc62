package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

var (
	ErrMissingToken = errors.New("missing or invalid token")
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateToken signs a token for userID valid for ttl. The storefront issues
// the real tokens; this mirrors their claims.
func GenerateToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies tokenStr and returns the session it identifies.
func ParseToken(secret []byte, tokenStr string) (models.Session, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return models.Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return models.Session{}, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return models.Session{UserID: subject, Token: tokenStr, ExpiresAt: exp.Time}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(authorization string) (string, error) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
