// Package usecase implements business logic orchestration for the key hierarchy.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// KekRepository defines the persistence contract for KEK records.
type KekRepository interface {
	Create(ctx context.Context, kek *cryptoDomain.Kek) error
	GetActive(ctx context.Context) (*cryptoDomain.Kek, error)
	GetByVersion(ctx context.Context, version int) (*cryptoDomain.Kek, error)
	List(ctx context.Context) ([]*cryptoDomain.Kek, error)
	Deprecate(ctx context.Context, version int) error
}

// KekUseCase manages the KEK lifecycle and serves plaintext KEK material.
type KekUseCase interface {
	// EnsureActive guarantees an active KEK exists, creating version 1 on
	// first boot, and primes the cache. Must be called before the server
	// accepts traffic.
	EnsureActive(ctx context.Context) error

	// Rotate creates a new active KEK version and deprecates the previous one
	// atomically. Existing file envelopes keep decrypting under their
	// recorded versions; nothing is re-encrypted.
	Rotate(ctx context.Context) error

	// ActiveKek returns the active KEK's version and plaintext key.
	ActiveKek(ctx context.Context) (int, []byte, error)

	// KekByVersion returns plaintext KEK material for a specific version,
	// reading through the cache on miss.
	KekByVersion(ctx context.Context, version int) ([]byte, error)
}
