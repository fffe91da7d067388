package domain

import (
	"github.com/allisson/vaultfs/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. The specific cause of a
// decryption failure is never disclosed to clients.
var (
	// ErrMasterKeyNotSet indicates MASTER_KEY (or a KMS keeper source) is not configured.
	ErrMasterKeyNotSet = errors.New("master key not set")

	// ErrInvalidMasterKeyBase64 indicates the master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.New("invalid master key base64")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidNonceSize indicates a stored nonce is not exactly 12 bytes.
	ErrInvalidNonceSize = errors.Wrap(errors.ErrIntegrity, "invalid nonce size")

	// ErrDecryptionFailed indicates an AEAD open failed: wrong key, tampered
	// ciphertext, or corrupted nonce. Mapped to an integrity failure so the
	// HTTP layer responds without leaking which part was rejected.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")

	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrKekNotFound indicates no KEK record exists for a requested version.
	ErrKekNotFound = errors.Wrap(errors.ErrNotFound, "kek not found")
)
