package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)

	token, expiration, err := issuer.Issue("64f000000000000000000001", "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, time.Hour.Milliseconds(), expiration)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "64f000000000000000000001", userID)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)
	other := NewTokenIssuer("another-secret", 1)

	token, _, err := issuer.Issue("64f000000000000000000001", "user@example.com")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)
	issuer.expiry = -time.Minute

	token, _, err := issuer.Issue("64f000000000000000000001", "user@example.com")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)

	_, err := issuer.Verify("not-a-token")
	assert.Error(t, err)

	_, err = issuer.Verify("")
	assert.Error(t, err)
}
