package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Generate(42, "alice")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("secret", time.Hour)
	m.now = func() time.Time { return now }

	token, err := m.Generate(1, "alice")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = m.Parse(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsOtherSecretsAndAlgorithms(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	foreign, err := NewTokenManager("other", time.Hour).Generate(1, "alice")
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	assert.Error(t, err)
}

func TestTokenWithoutExpiryIsRejected(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	m := NewTokenManager("secret", 0)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}

func TestClaimsUserIDRejectsBadSubject(t *testing.T) {
	for _, sub := range []string{"", "0", "abc", "-3"} {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		_, err := c.UserID()
		assert.Error(t, err, sub)
	}
}
