package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", "id-1", "admin@example.com", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	claims, err := ParseSessionToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, tok.ID, claims.ID)
}

func TestParseSessionTokenRejects(t *testing.T) {
	good, err := NewSessionToken("secret", "id-1", "a@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := NewSessionToken("secret", "id-1", "a@example.com", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{name: "wrong secret", key: "other", raw: good.Token},
		{name: "expired", key: "secret", raw: expired.Token},
		{name: "garbage", key: "secret", raw: "not-a-jwt"},
		{name: "empty", key: "secret", raw: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSessionToken(tc.key, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHashTokenIDIsStable(t *testing.T) {
	assert.Equal(t, HashTokenID("abc"), HashTokenID("abc"))
	assert.NotEqual(t, HashTokenID("abc"), HashTokenID("abd"))
	assert.Len(t, HashTokenID("abc"), 64)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestRandomSecret(t *testing.T) {
	a, err := RandomSecret(16)
	require.NoError(t, err)
	b, err := RandomSecret(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
