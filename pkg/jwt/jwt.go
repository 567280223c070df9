package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails parsing, signature or
// expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a session cookie. The session id travels as jti.
type Claims struct {
	gojwt.RegisteredClaims
}

// SessionID returns the id of the server-side session the token points at.
func (c *Claims) SessionID() string { return c.ID }

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign creates a token referencing sessionID that expires after ttl.
func (s *Signer) Sign(sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("jwt: session id is required")
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates a raw token string and returns its claims.
func (s *Signer) Parse(raw string) (*Claims, error) {
	token, err := gojwt.ParseWithClaims(raw, &Claims{}, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, gojwt.WithTimeFunc(s.now), gojwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
