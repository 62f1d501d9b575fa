// Package auth issues and validates the bearer tokens that identify the
// agent performing a write.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, signed
// with another key or issued by someone else.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by an agent token. Subject is the
// actor id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// TokenProvider signs and validates HS256 tokens with a shared secret.
type TokenProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenProvider returns a provider for secret and issuer.
func NewTokenProvider(secret, issuer string) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue returns a signed token for subject valid for ttl.
func (p *TokenProvider) Issue(subject, email string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	now := p.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, expiry and issuer of token and returns
// its claims.
func (p *TokenProvider) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
