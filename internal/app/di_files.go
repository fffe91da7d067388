package app

import (
	"fmt"

	filesRepository "github.com/allisson/vaultfs/internal/files/repository"
	"github.com/allisson/vaultfs/internal/files/storage"
	filesUsecase "github.com/allisson/vaultfs/internal/files/usecase"
)

// FileRepository returns the file record repository.
func (c *Container) FileRepository() (*filesRepository.PostgreSQLFileRepository, error) {
	return get(c, "fileRepository", func() (*filesRepository.PostgreSQLFileRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		switch c.config.DBDriver {
		case "postgres":
			return filesRepository.NewPostgreSQLFileRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
}

// UploadStatsRepository returns the daily upload stats repository.
func (c *Container) UploadStatsRepository() (filesUsecase.UploadStatsRepository, error) {
	return get(c, "uploadStatsRepository", func() (filesUsecase.UploadStatsRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return filesRepository.NewPostgreSQLUploadStatsRepository(db), nil
	})
}

// Staging returns the staging store for in-flight upload chunks.
func (c *Container) Staging() (*storage.Staging, error) {
	return get(c, "staging", func() (*storage.Staging, error) {
		return storage.NewStaging(c.config.StagingRoot)
	})
}

// BlobStore returns the permanent ciphertext store.
func (c *Container) BlobStore() (*storage.BlobStore, error) {
	return get(c, "blobStore", func() (*storage.BlobStore, error) {
		return storage.NewBlobStore(c.config.FilesRoot)
	})
}

// UploadUseCase returns the chunked upload state machine.
func (c *Container) UploadUseCase() (filesUsecase.UploadUseCase, error) {
	return get(c, "uploadUseCase", func() (filesUsecase.UploadUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		fileRepo, err := c.FileRepository()
		if err != nil {
			return nil, err
		}
		statsRepo, err := c.UploadStatsRepository()
		if err != nil {
			return nil, err
		}
		userRepo, err := c.UserRepository()
		if err != nil {
			return nil, err
		}
		folderRepo, err := c.FolderRepository()
		if err != nil {
			return nil, err
		}
		quota, err := c.QuotaUseCase()
		if err != nil {
			return nil, err
		}
		keyManager, err := c.KeyManager()
		if err != nil {
			return nil, err
		}
		aeadManager, err := c.AEADManager()
		if err != nil {
			return nil, err
		}
		kekUseCase, err := c.KekUseCase()
		if err != nil {
			return nil, err
		}
		staging, err := c.Staging()
		if err != nil {
			return nil, err
		}
		blobs, err := c.BlobStore()
		if err != nil {
			return nil, err
		}
		computePool, err := c.ComputePool()
		if err != nil {
			return nil, err
		}
		algorithm, err := c.Algorithm()
		if err != nil {
			return nil, err
		}
		return filesUsecase.NewUploadUseCase(
			txManager,
			fileRepo,
			statsRepo,
			userRepo,
			folderRepo,
			quota,
			keyManager,
			aeadManager,
			kekUseCase,
			staging,
			blobs,
			computePool,
			c.config.UploadChunkSize,
			algorithm,
			c.Logger(),
		), nil
	})
}

// FileUseCase returns the file read/delete use case.
func (c *Container) FileUseCase() (filesUsecase.FileUseCase, error) {
	return get(c, "fileUseCase", func() (filesUsecase.FileUseCase, error) {
		fileRepo, err := c.FileRepository()
		if err != nil {
			return nil, err
		}
		quota, err := c.QuotaUseCase()
		if err != nil {
			return nil, err
		}
		keyManager, err := c.KeyManager()
		if err != nil {
			return nil, err
		}
		aeadManager, err := c.AEADManager()
		if err != nil {
			return nil, err
		}
		kekUseCase, err := c.KekUseCase()
		if err != nil {
			return nil, err
		}
		blobs, err := c.BlobStore()
		if err != nil {
			return nil, err
		}
		computePool, err := c.ComputePool()
		if err != nil {
			return nil, err
		}
		algorithm, err := c.Algorithm()
		if err != nil {
			return nil, err
		}
		return filesUsecase.NewFileUseCase(
			fileRepo,
			quota,
			keyManager,
			aeadManager,
			kekUseCase,
			blobs,
			computePool,
			algorithm,
			c.Logger(),
		), nil
	})
}

// CleanupUseCase returns the abandoned-upload reclamation use case.
func (c *Container) CleanupUseCase() (filesUsecase.CleanupUseCase, error) {
	return get(c, "cleanupUseCase", func() (filesUsecase.CleanupUseCase, error) {
		fileRepo, err := c.FileRepository()
		if err != nil {
			return nil, err
		}
		quota, err := c.QuotaUseCase()
		if err != nil {
			return nil, err
		}
		staging, err := c.Staging()
		if err != nil {
			return nil, err
		}
		return filesUsecase.NewCleanupUseCase(
			fileRepo,
			quota,
			staging,
			c.config.UploadTTL,
			c.Logger(),
		), nil
	})
}

// CleanupWorker returns the periodic cleanup worker.
func (c *Container) CleanupWorker() (*filesUsecase.CleanupWorker, error) {
	return get(c, "cleanupWorker", func() (*filesUsecase.CleanupWorker, error) {
		cleanup, err := c.CleanupUseCase()
		if err != nil {
			return nil, err
		}
		return filesUsecase.NewCleanupWorker(cleanup, c.config.CleanupInterval, c.Logger()), nil
	})
}
