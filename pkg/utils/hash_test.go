package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)

	require.True(t, CheckPassword("hunter22", hash))
	require.False(t, CheckPassword("hunter23", hash))
	require.False(t, CheckPassword("hunter22", "not-a-hash"))
}
