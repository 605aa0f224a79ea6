package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}

func TestHashPasswordClampsBadCost(t *testing.T) {
	// A zero or absurd cost from the environment falls back to the
	// bcrypt default instead of erroring out.
	hash, err := HashPassword("hunter22", 0)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
}
