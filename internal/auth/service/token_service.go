package service

import (
	"crypto/rand"
	"encoding/base64"

	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// TokenService generates opaque random tokens for sessions and CSRF binding.
type TokenService interface {
	// GenerateToken creates a cryptographically secure 32-byte random token,
	// base64url-encoded.
	GenerateToken() (string, error)
}

// tokenService implements TokenService.
type tokenService struct{}

// GenerateToken creates a new cryptographically secure 32-byte random token.
func (t *tokenService) GenerateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate random token")
	}

	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// NewTokenService creates a new TokenService instance.
func NewTokenService() TokenService {
	return &tokenService{}
}
