package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, VerifyPassword(hash, "correct horse battery staple"))
	require.False(t, VerifyPassword(hash, "wrong password"))
	require.False(t, VerifyPassword("not-a-hash", "correct horse battery staple"))
}

func TestPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 100))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}
