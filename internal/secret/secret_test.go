package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBox(t *testing.T, keys ...string) *Box {
	t.Helper()
	b, err := New(keys...)
	require.NoError(t, err)
	return b
}

func TestBox_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	box := newBox(t, key)

	tok, err := box.Encrypt("50100012345678")
	require.NoError(t, err)
	assert.NotContains(t, tok, "50100012345678")

	plain, err := box.Decrypt(tok)
	require.NoError(t, err)
	assert.Equal(t, "50100012345678", plain)
}

// TestBox_Rotation verifies that tokens written with an old key stay readable
// after a new key is prepended.
func TestBox_Rotation(t *testing.T) {
	oldKey, err := GenerateKey()
	require.NoError(t, err)
	newKey, err := GenerateKey()
	require.NoError(t, err)

	tok, err := newBox(t, oldKey).Encrypt("acct")
	require.NoError(t, err)

	plain, err := newBox(t, newKey, oldKey).Decrypt(tok)
	require.NoError(t, err)
	assert.Equal(t, "acct", plain)
}

func TestBox_Errors(t *testing.T) {
	t.Run("wrong key", func(t *testing.T) {
		k1, _ := GenerateKey()
		k2, _ := GenerateKey()
		tok, err := newBox(t, k1).Encrypt("acct")
		require.NoError(t, err)

		_, err = newBox(t, k2).Decrypt(tok)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("garbage token", func(t *testing.T) {
		k, _ := GenerateKey()
		_, err := newBox(t, k).Decrypt("not-a-token")
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := New("short")
		assert.Error(t, err)
	})

	t.Run("no keys", func(t *testing.T) {
		_, err := New()
		assert.Error(t, err)
	})
}
