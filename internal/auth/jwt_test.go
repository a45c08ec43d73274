package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker(testSecret)

	tok, err := tm.New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)
	assert.Equal(t, RoleAdmin, c.Role)
	assert.Equal(t, issuer, c.Issuer)
	assert.NotEmpty(t, c.ID)
}

func TestTokenMaker_Rejects(t *testing.T) {
	tm := NewTokenMaker(testSecret)

	expired, err := tm.New("admin", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewTokenMaker("another-secret-another-secret-xx").New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)

	otherIssuer := &TokenMaker{secret: []byte(testSecret), issuer: "someone-else"}
	foreign, err := otherIssuer.New("admin", RoleAdmin, time.Minute)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "admin"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not.a.jwt",
		"expired":        expired,
		"wrong key":      otherKey,
		"wrong issuer":   foreign,
		"no expiry":      noExp,
		"unsigned token": none,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
