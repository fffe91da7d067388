// Package service provides cryptographic services for the key hierarchy.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), Argon2id key
// derivation and the key manager that wraps and unwraps KEKs and DEKs.
package service

import (
	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives password-derived keys (PDKs) for DEK wrapping.
type KeyDeriver interface {
	// DeriveKey derives a 32-byte key from a password and salt.
	DeriveKey(password string, salt []byte) []byte

	// GenerateSalt returns a fresh random salt for key derivation.
	GenerateSalt() ([]byte, error)
}

// UserDek is the persisted wrap of a user's data encryption key: the DEK
// encrypted under the PDK, together with the nonce and the salt the PDK was
// derived with.
type UserDek struct {
	EncryptedKey []byte
	Nonce        []byte
	Salt         []byte
}

// KeyManager defines the interface for managing keys across the hierarchy.
type KeyManager interface {
	// CreateKek creates a new KEK encrypted with the master key.
	CreateKek(
		masterKey *cryptoDomain.MasterKey,
		alg cryptoDomain.Algorithm,
	) (cryptoDomain.Kek, error)

	// DecryptKek decrypts a KEK record using the master key.
	DecryptKek(kek *cryptoDomain.Kek, masterKey *cryptoDomain.MasterKey) ([]byte, error)

	// CreateUserDek generates a fresh DEK and wraps it under a PDK derived
	// from the given password with a fresh salt.
	CreateUserDek(password string) (UserDek, error)

	// UnwrapUserDek recovers the plaintext DEK from its PDK wrap. Callers must
	// zero the returned key when done.
	UnwrapUserDek(wrapped UserDek, password string) ([]byte, error)

	// UnwrapUserDekWithPDK recovers the plaintext DEK using an already-derived
	// PDK, e.g. the one a session holds. Callers must zero the returned key.
	UnwrapUserDekWithPDK(wrapped UserDek, pdk []byte) ([]byte, error)

	// RewrapUserDek re-encrypts an existing DEK under a PDK derived from a new
	// password with a fresh salt. The DEK value itself is unchanged.
	RewrapUserDek(dek []byte, newPassword string) (UserDek, error)

	// WrapDekWithKek encrypts a DEK under a KEK for the per-file envelope.
	WrapDekWithKek(dek []byte, kekKey []byte, alg cryptoDomain.Algorithm) (ciphertext, nonce []byte, err error)

	// UnwrapDekWithKek decrypts a per-file DEK envelope with the KEK of the
	// version recorded on the file.
	UnwrapDekWithKek(ciphertext, nonce, kekKey []byte, alg cryptoDomain.Algorithm) ([]byte, error)
}
