// Package token issues and parses the HS256 session tokens. The subject claim
// carries the owning user id so a token can be resolved back to its user.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clientdesk/portal/internal/core/domain"
)

const defaultTTL = 24 * time.Hour

// Claims is the parsed content of a session token.
type Claims struct {
	UserID    string
	ID        string
	ExpiresAt time.Time
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a new token for userID.
func (i *Issuer) Issue(userID string) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})

	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw and returns its claims. Any failure is reported as
// domain.ErrInvalidToken.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	rc := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(raw, rc, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	if !tkn.Valid || rc.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	claims := &Claims{UserID: rc.Subject, ID: rc.ID}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}
