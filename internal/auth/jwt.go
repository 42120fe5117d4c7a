// Package auth verifies and issues the bearer tokens that identify queue owners.
// A token is an HS256 JWT whose subject is the owner UUID.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/playqueue/internal/errs"
)

// Leeway tolerates clock skew between issuer and server.
const Leeway = 30 * time.Second

// Verifier checks bearer tokens signed with a shared key.
type Verifier struct {
	key []byte
}

// NewVerifier returns a Verifier for key.
func NewVerifier(key []byte) *Verifier { return &Verifier{key: key} }

// Verify parses tok and returns its owner. Every failure matches errs.ErrUnauthorized.
func (v *Verifier) Verify(tok string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithLeeway(Leeway))
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}
	return id, nil
}

// Issue creates a signed HS256 token for owner valid for ttl.
func Issue(key []byte, owner uuid.UUID, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   owner.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	return signed, exp, err
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(v[7:])
	return t, t != ""
}
