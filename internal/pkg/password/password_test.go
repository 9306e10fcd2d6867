package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	Cost = bcrypt.MinCost

	hash, err := Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, Verify("hunter22", hash))
	assert.False(t, Verify("hunter23", hash))
}

func TestValidatePassword(t *testing.T) {
	tests := map[string]bool{
		"abc12345":    true,
		"short1":      false,
		"lettersonly": false,
		"12345678":    false,
		"pässwörd1":   true,
	}
	for in, want := range tests {
		assert.Equal(t, want, ValidatePassword(in), in)
	}
}
