package app

import (
	"fmt"

	foldersRepository "github.com/allisson/vaultfs/internal/folders/repository"
	foldersUsecase "github.com/allisson/vaultfs/internal/folders/usecase"
)

// FolderRepository returns the folder repository.
func (c *Container) FolderRepository() (*foldersRepository.PostgreSQLFolderRepository, error) {
	return get(c, "folderRepository", func() (*foldersRepository.PostgreSQLFolderRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		switch c.config.DBDriver {
		case "postgres":
			return foldersRepository.NewPostgreSQLFolderRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
}

// FolderUseCase returns the folder tree use case.
func (c *Container) FolderUseCase() (foldersUsecase.FolderUseCase, error) {
	return get(c, "folderUseCase", func() (foldersUsecase.FolderUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		folderRepo, err := c.FolderRepository()
		if err != nil {
			return nil, err
		}
		fileRepo, err := c.FileRepository()
		if err != nil {
			return nil, err
		}
		return foldersUsecase.NewFolderUseCase(txManager, folderRepo, fileRepo), nil
	})
}
