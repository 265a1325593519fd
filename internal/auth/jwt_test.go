package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathanlei/messagely/internal/auth"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)

	username, err := auth.UsernameFromToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "alice", username)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)

	_, err = auth.UsernameFromToken(token, []byte("other-secret"))
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	token, err := auth.GenerateToken("alice", secret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.UsernameFromToken(token, secret)
	require.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := auth.UsernameFromToken("not-a-token", secret)
	require.Error(t, err)
}
