package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	token, err := issueToken("alice", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := parseTokenSubject(token, secret)
	require.NoError(t, err)
	require.Equal(t, "alice", subject)
}

func TestTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := issueToken("alice", []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte("wrong-secret"))
	require.Error(t, err)
}

func TestTokenTampered(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	token, err := issueToken("alice", secret, time.Hour)
	require.NoError(t, err)

	// Flip one character in the payload segment.
	mid := len(token) / 2
	flipped := byte('A')
	if token[mid] == 'A' {
		flipped = 'B'
	}
	tampered := token[:mid] + string(flipped) + token[mid+1:]

	_, err = parseTokenSubject(tampered, secret)
	require.Error(t, err)
}

func TestTokenMalformed(t *testing.T) {
	t.Parallel()

	_, err := parseTokenSubject("not.a.jwt", []byte("k"))
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	token, err := issueToken("alice", secret, -time.Minute)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, secret)
	require.Error(t, err)
}
