package service

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// Argon2id parameters for password-derived key output. These follow the
// OWASP interactive recommendation (19 MiB memory, 3 iterations) with the
// parallelism raised to match the deployment's compute pool width.
const (
	argonTime    = 3
	argonMemory  = 19 * 1024 // KiB
	argonThreads = 6
)

// Argon2Deriver implements KeyDeriver using Argon2id in raw-key-output mode.
//
// This is distinct from password *verification*: the login verifier uses
// go-pwdhash's encoded Argon2id hash, while this deriver produces the raw
// 32-byte PDK that wraps the user's DEK. The two uses have separate salts.
type Argon2Deriver struct{}

// NewArgon2Deriver creates a new Argon2Deriver.
func NewArgon2Deriver() *Argon2Deriver {
	return &Argon2Deriver{}
}

// DeriveKey derives a 32-byte PDK from a password and salt.
func (d *Argon2Deriver) DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, cryptoDomain.KeySize)
}

// GenerateSalt returns a fresh 16-byte random salt.
func (d *Argon2Deriver) GenerateSalt() ([]byte, error) {
	salt := make([]byte, cryptoDomain.DekSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
