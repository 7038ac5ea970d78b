package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestCredentialsLifecycle(t *testing.T) {
	creds := NewCredentials()
	assert.False(t, creds.Authenticated())

	creds.Set("opaque-token", "alice")
	assert.Equal(t, "opaque-token", creds.Token())
	assert.Equal(t, "alice", creds.Username())
	assert.True(t, creds.ExpiresAt().IsZero())

	creds.Invalidate()
	assert.Empty(t, creds.Token())
	assert.Empty(t, creds.Username())
}

func TestCredentialsHonourJWTExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	creds := NewCredentials()
	creds.now = func() time.Time { return now }

	token := signedToken(t, now.Add(time.Hour))
	creds.Set(token, "alice")
	assert.Equal(t, token, creds.Token())
	assert.Equal(t, now.Add(time.Hour).Unix(), creds.ExpiresAt().Unix())

	now = now.Add(2 * time.Hour)
	assert.Empty(t, creds.Token())
	assert.False(t, creds.Authenticated())
}

func TestTokenExpiryIgnoresGarbage(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}
