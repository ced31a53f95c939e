package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerppy/xerppy/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", 30*time.Minute)

	token, err := issuer.Create("alice", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, ok := issuer.Decode(token)
	require.True(t, ok)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestTokenExpired(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", -time.Minute)

	token, err := issuer.Create("alice", "user")
	require.NoError(t, err)

	claims, ok := issuer.Decode(token)
	assert.False(t, ok)
	assert.Nil(t, claims)
}

func TestTokenZeroTTL(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", 0)

	token, err := issuer.Create("alice", "user")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, ok := issuer.Decode(token)
	assert.False(t, ok)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", time.Hour)
	other := auth.NewTokenIssuer("different", "xerppy", time.Hour)

	token, err := issuer.Create("alice", "user")
	require.NoError(t, err)

	_, ok := other.Decode(token)
	assert.False(t, ok)
}

func TestTokenMalformed(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, ok := issuer.Decode(tok)
		assert.False(t, ok, "token %q should not decode", tok)
	}
}

func TestTokenMissingSubject(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", time.Hour)

	// Well-formed and well-signed, but no sub claim.
	now := time.Now()
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "xerppy",
		"role": "user",
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, ok := issuer.Decode(token)
	assert.False(t, ok)
}

func TestTokenMissingExpiry(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", "xerppy", time.Hour)

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "xerppy",
		"sub": "alice",
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, ok := issuer.Decode(token)
	assert.False(t, ok)
}
