package usecase

import (
	"context"
	"log/slog"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
)

// kekUseCase implements KekUseCase.
//
// Decryption routes through the version recorded on each file envelope;
// encryption always uses the active version. The cache holds plaintext KEKs
// only — never the master key — and is evicted and re-primed on rotation.
type kekUseCase struct {
	txManager  database.TxManager
	kekRepo    KekRepository
	keyManager cryptoService.KeyManager
	masterKey  *cryptoDomain.MasterKey
	cache      *cryptoDomain.KekCache
	algorithm  cryptoDomain.Algorithm
	logger     *slog.Logger
}

// NewKekUseCase creates a new KekUseCase.
func NewKekUseCase(
	txManager database.TxManager,
	kekRepo KekRepository,
	keyManager cryptoService.KeyManager,
	masterKey *cryptoDomain.MasterKey,
	cache *cryptoDomain.KekCache,
	algorithm cryptoDomain.Algorithm,
	logger *slog.Logger,
) KekUseCase {
	return &kekUseCase{
		txManager:  txManager,
		kekRepo:    kekRepo,
		keyManager: keyManager,
		masterKey:  masterKey,
		cache:      cache,
		algorithm:  algorithm,
		logger:     logger,
	}
}

// EnsureActive guarantees an active KEK exists and primes the cache.
func (k *kekUseCase) EnsureActive(ctx context.Context) error {
	kek, err := k.kekRepo.GetActive(ctx)
	if err == nil {
		key, err := k.keyManager.DecryptKek(kek, k.masterKey)
		if err != nil {
			return apperrors.Wrap(err, "failed to decrypt active kek")
		}
		k.cache.SetActive(kek.Version, key)
		k.logger.Info("active kek loaded", slog.Int("version", kek.Version))
		return nil
	}
	if !apperrors.Is(err, cryptoDomain.ErrKekNotFound) {
		return err
	}

	// First boot: create version 1.
	newKek, err := k.keyManager.CreateKek(k.masterKey, k.algorithm)
	if err != nil {
		return err
	}
	newKek.Version = 1

	if err := k.kekRepo.Create(ctx, &newKek); err != nil {
		return err
	}

	k.cache.SetActive(newKek.Version, newKek.Key)
	k.logger.Info("initial kek created", slog.Int("version", newKek.Version))
	return nil
}

// Rotate creates a new active KEK version and deprecates the previous one.
func (k *kekUseCase) Rotate(ctx context.Context) error {
	var rotated cryptoDomain.Kek

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		keks, err := k.kekRepo.List(ctx)
		if err != nil {
			return err
		}

		newKek, err := k.keyManager.CreateKek(k.masterKey, k.algorithm)
		if err != nil {
			return err
		}

		if len(keks) == 0 {
			newKek.Version = 1
		} else {
			current := keks[0]
			newKek.Version = current.Version + 1
			if err := k.kekRepo.Deprecate(ctx, current.Version); err != nil {
				return err
			}
		}

		if err := k.kekRepo.Create(ctx, &newKek); err != nil {
			return err
		}

		rotated = newKek
		return nil
	})
	if err != nil {
		return err
	}

	// Evict and re-prime only after the transaction commits, so readers never
	// observe a version the database does not have.
	k.cache.Close()
	k.cache.SetActive(rotated.Version, rotated.Key)
	k.logger.Info("kek rotated", slog.Int("version", rotated.Version))
	return nil
}

// ActiveKek returns the active KEK's version and plaintext key material.
func (k *kekUseCase) ActiveKek(ctx context.Context) (int, []byte, error) {
	version := k.cache.ActiveVersion()
	if version != 0 {
		if key, ok := k.cache.Get(version); ok {
			return version, key, nil
		}
	}

	kek, err := k.kekRepo.GetActive(ctx)
	if err != nil {
		return 0, nil, err
	}

	key, err := k.keyManager.DecryptKek(kek, k.masterKey)
	if err != nil {
		return 0, nil, err
	}

	k.cache.SetActive(kek.Version, key)
	return kek.Version, key, nil
}

// KekByVersion returns plaintext KEK material for a version, caching on miss.
func (k *kekUseCase) KekByVersion(ctx context.Context, version int) ([]byte, error) {
	if key, ok := k.cache.Get(version); ok {
		return key, nil
	}

	kek, err := k.kekRepo.GetByVersion(ctx, version)
	if err != nil {
		return nil, err
	}

	key, err := k.keyManager.DecryptKek(kek, k.masterKey)
	if err != nil {
		return nil, err
	}

	k.cache.Put(version, key)
	return key, nil
}
