package domain

// Algorithm represents the AEAD algorithm used for encryption.
//
// Both supported algorithms use 256-bit keys, 12-byte nonces and 16-byte
// authentication tags, so records are interchangeable at the storage layer.
type Algorithm string

const (
	// AESGCM is AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305. Constant-time in software, preferred on
	// hardware without AES acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the symmetric key length in bytes for every tier of the hierarchy.
const KeySize = 32

// NonceSize is the AEAD nonce length in bytes.
const NonceSize = 12

// DekSaltSize is the salt length for password-derived key derivation.
const DekSaltSize = 16
