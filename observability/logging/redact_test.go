package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSensitive(t *testing.T) {
	for _, key := range []string{"password", "token", "private_key", "jwt", "secret", " Password "} {
		require.True(t, IsSensitive(key), key)
	}
	for _, key := range []string{"email", "wallet_address", "tx", "data_type"} {
		require.False(t, IsSensitive(key), key)
	}
}

func TestMaskField(t *testing.T) {
	masked := MaskField("password", "hunter2")
	require.Equal(t, RedactedValue, masked.Value.String())

	plain := MaskField("email", "a@example.com")
	require.Equal(t, "a@example.com", plain.Value.String())

	// empty values pass through unmasked
	empty := MaskField("password", "")
	require.Equal(t, "", empty.Value.String())
}
