package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	cryptoRepository "github.com/allisson/vaultfs/internal/crypto/repository"
	cryptoService "github.com/allisson/vaultfs/internal/crypto/service"
	cryptoUsecase "github.com/allisson/vaultfs/internal/crypto/usecase"
)

// Algorithm returns the configured AEAD algorithm.
func (c *Container) Algorithm() (cryptoDomain.Algorithm, error) {
	switch cryptoDomain.Algorithm(c.config.AEADAlgorithm) {
	case cryptoDomain.AESGCM:
		return cryptoDomain.AESGCM, nil
	case cryptoDomain.ChaCha20:
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf("unsupported AEAD_ALGORITHM: %q", c.config.AEADAlgorithm)
	}
}

// MasterKey returns the deployment master key, loaded from MASTER_KEY or
// unwrapped through the configured KMS keeper.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	return get(c, "masterKey", func() (*cryptoDomain.MasterKey, error) {
		if c.config.KMSKeyURI != "" {
			kms := cryptoService.NewKMSService()
			return kms.UnwrapMasterKey(context.Background(), c.config.KMSKeyURI, c.config.KMSMasterKeyB64)
		}
		return cryptoDomain.LoadMasterKey(c.config.MasterKey)
	})
}

// KekCache returns the process-wide KEK cache.
func (c *Container) KekCache() (*cryptoDomain.KekCache, error) {
	return get(c, "kekCache", func() (*cryptoDomain.KekCache, error) {
		return cryptoDomain.NewKekCache(), nil
	})
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() (cryptoService.AEADManager, error) {
	return get(c, "aeadManager", func() (cryptoService.AEADManager, error) {
		return cryptoService.NewAEADManager(), nil
	})
}

// KeyDeriver returns the Argon2id PDK deriver.
func (c *Container) KeyDeriver() (cryptoService.KeyDeriver, error) {
	return get(c, "keyDeriver", func() (cryptoService.KeyDeriver, error) {
		return cryptoService.NewArgon2Deriver(), nil
	})
}

// KeyManager returns the key hierarchy manager.
func (c *Container) KeyManager() (cryptoService.KeyManager, error) {
	return get(c, "keyManager", func() (cryptoService.KeyManager, error) {
		aeadManager, err := c.AEADManager()
		if err != nil {
			return nil, err
		}
		keyDeriver, err := c.KeyDeriver()
		if err != nil {
			return nil, err
		}
		return cryptoService.NewKeyManager(aeadManager, keyDeriver), nil
	})
}

// KekRepository returns the KEK repository.
func (c *Container) KekRepository() (cryptoUsecase.KekRepository, error) {
	return get(c, "kekRepository", func() (cryptoUsecase.KekRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		switch c.config.DBDriver {
		case "postgres":
			return cryptoRepository.NewPostgreSQLKekRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
}

// KekUseCase returns the KEK lifecycle use case.
func (c *Container) KekUseCase() (cryptoUsecase.KekUseCase, error) {
	return get(c, "kekUseCase", func() (cryptoUsecase.KekUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		kekRepo, err := c.KekRepository()
		if err != nil {
			return nil, err
		}
		keyManager, err := c.KeyManager()
		if err != nil {
			return nil, err
		}
		masterKey, err := c.MasterKey()
		if err != nil {
			return nil, err
		}
		cache, err := c.KekCache()
		if err != nil {
			return nil, err
		}
		algorithm, err := c.Algorithm()
		if err != nil {
			return nil, err
		}
		return cryptoUsecase.NewKekUseCase(
			txManager,
			kekRepo,
			keyManager,
			masterKey,
			cache,
			algorithm,
			c.Logger(),
		), nil
	})
}
