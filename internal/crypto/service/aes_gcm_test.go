package service

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAESGCM(t *testing.T) {
	t.Run("valid 256-bit key", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)

		cipher, err := NewAESGCM(key)
		assert.NoError(t, err)
		assert.NotNil(t, cipher)
	})

	t.Run("invalid key size", func(t *testing.T) {
		key := make([]byte, 16)
		_, err := rand.Read(key)
		require.NoError(t, err)

		cipher, err := NewAESGCM(key)
		assert.Error(t, err)
		assert.Nil(t, cipher)
	})
}

func TestAESGCMCipher_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESGCM(key)
	require.NoError(t, err)

	t.Run("encrypt then decrypt returns the plaintext", func(t *testing.T) {
		plaintext := []byte("three lines\nof text\nexactly here\n")

		ciphertext, nonce, err := cipher.Encrypt(plaintext, nil)
		require.NoError(t, err)
		assert.Len(t, nonce, 12)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := cipher.Decrypt(ciphertext, nonce, nil)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("empty plaintext round-trips", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte{}, nil)
		require.NoError(t, err)

		decrypted, err := cipher.Decrypt(ciphertext, nonce, nil)
		require.NoError(t, err)
		assert.Empty(t, decrypted)
	})

	t.Run("AAD is bound to the ciphertext", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte("payload"), []byte("context-a"))
		require.NoError(t, err)

		_, err = cipher.Decrypt(ciphertext, nonce, []byte("context-b"))
		assert.Error(t, err)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte("payload"), nil)
		require.NoError(t, err)

		otherKey := make([]byte, 32)
		_, err = rand.Read(otherKey)
		require.NoError(t, err)
		otherCipher, err := NewAESGCM(otherKey)
		require.NoError(t, err)

		_, err = otherCipher.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
	})

	t.Run("tampered ciphertext is rejected", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte("payload"), nil)
		require.NoError(t, err)

		ciphertext[0] ^= 0x01
		_, err = cipher.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
	})
}

func TestAESGCMCipher_NonceUniqueness(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESGCM(key)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		_, nonce, err := cipher.Encrypt([]byte("same plaintext"), nil)
		require.NoError(t, err)

		hexNonce := hex.EncodeToString(nonce)
		_, dup := seen[hexNonce]
		require.False(t, dup, "nonce repeated after %d encryptions", i)
		seen[hexNonce] = struct{}{}
	}
}
