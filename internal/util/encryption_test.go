package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ciphertext, err := Encrypt(testKey, "ltoken_v2=abc123")
		require.NoError(t, err)
		assert.NotEqual(t, "ltoken_v2=abc123", ciphertext)

		plaintext, err := Decrypt(testKey, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "ltoken_v2=abc123", plaintext)
	})

	t.Run("same plaintext encrypts differently each time", func(t *testing.T) {
		c1, err := Encrypt(testKey, "value")
		require.NoError(t, err)
		c2, err := Encrypt(testKey, "value")
		require.NoError(t, err)
		assert.NotEqual(t, c1, c2)
	})

	t.Run("wrong key fails to decrypt", func(t *testing.T) {
		ciphertext, err := Encrypt(testKey, "value")
		require.NoError(t, err)

		otherKey := "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
		_, err = Decrypt(otherKey, ciphertext)
		assert.Error(t, err)
	})

	t.Run("rejects a short key", func(t *testing.T) {
		_, err := Encrypt("deadbeef", "value")
		assert.Error(t, err)
	})

	t.Run("rejects a non-hex key", func(t *testing.T) {
		_, err := Encrypt("zz", "value")
		assert.Error(t, err)
	})

	t.Run("rejects garbage ciphertext", func(t *testing.T) {
		_, err := Decrypt(testKey, "not base64!!!")
		assert.Error(t, err)

		_, err = Decrypt(testKey, "YQ==")
		assert.Error(t, err)
	})
}
