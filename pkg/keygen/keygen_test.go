package keygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	a, err := NewKey()
	require.NoError(t, err)
	b, err := NewKey()
	require.NoError(t, err)

	assert.Len(t, a, 43, "32 bytes base64url without padding")
	assert.NotEqual(t, a, b)
}

func TestHashKey(t *testing.T) {
	h := HashKey("hello")
	assert.Len(t, h, 64)
	// SHA-256("hello"), stable across runs.
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "api_abcde", Prefix("abcdefgh"))
	assert.Equal(t, "api_ab", Prefix("ab"))
}
