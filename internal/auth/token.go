// Package auth verifies the identity tokens issued by the identity provider.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatroom-service/internal/apperr"
)

// Claims is the payload the identity provider signs.
type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the verified caller attached to requests and connections.
type Identity struct {
	UserID   int
	Username string
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a token.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: empty token", apperr.ErrUnauthenticated)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.ID <= 0 {
		return Identity{}, fmt.Errorf("%w: invalid claims", apperr.ErrUnauthenticated)
	}
	return Identity{UserID: claims.ID, Username: claims.Username}, nil
}

// Issue signs a token the same way the identity provider does. Used by
// local tooling and tests.
func (v *Verifier) Issue(userID int, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:       userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
