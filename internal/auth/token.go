// Package auth is the thin caller-identity primitive for the ledger.
// It does not implement accounts or authentication — identity is supplied by
// the environment as a signed HS256 token whose subject is the principal's
// UUID. The API middleware and the websocket hub both resolve callers
// through it.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/domain"
)

// IssueToken signs a bearer token identifying principal, valid for ttl.
func IssueToken(secret []byte, principal uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the principal it identifies.
// Returns domain.ErrTokenInvalid for any malformed, expired, or mis-signed
// token.
func ParseToken(secret []byte, tokenString string) (uuid.UUID, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, domain.ErrTokenInvalid
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	principal, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return principal, nil
}
