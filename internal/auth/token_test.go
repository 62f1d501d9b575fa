package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestIssueAndValidate(t *testing.T) {
	p := NewTokenProvider(secret, "leadbook")

	token, err := p.Issue("agent-7", "agent7@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := p.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-7", claims.Subject)
	assert.Equal(t, "agent7@example.com", claims.Email)
	assert.Equal(t, "leadbook", claims.Issuer)
}

func TestIssue_EmptySubject(t *testing.T) {
	_, err := NewTokenProvider(secret, "leadbook").Issue("", "", time.Hour)
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	p := NewTokenProvider(secret, "leadbook")
	good, err := p.Issue("agent-7", "", time.Hour)
	require.NoError(t, err)

	expired := NewTokenProvider(secret, "leadbook")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("agent-7", "", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewTokenProvider(secret, "someone-else").Issue("agent-7", "", time.Hour)
	require.NoError(t, err)

	otherKey, err := NewTokenProvider("ffffffffffffffffffffffffffffffff", "leadbook").Issue("agent-7", "", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "leadbook", Subject: "agent-7"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "leadbook",
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     good + "x",
		"expired":      old,
		"other issuer": otherIssuer,
		"other key":    otherKey,
		"no expiry":    noExpiry,
		"none alg":     noneAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
