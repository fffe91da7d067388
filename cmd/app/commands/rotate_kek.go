package commands

import (
	"context"
	"fmt"

	"github.com/allisson/vaultfs/internal/app"
	"github.com/allisson/vaultfs/internal/config"
)

// RunRotateKek rotates the Key Encryption Key: a new version becomes active
// and the previous one is deprecated in the same transaction. Existing file
// envelopes keep decrypting under their recorded versions; nothing is
// re-encrypted.
func RunRotateKek(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	kekUseCase, err := container.KekUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize kek use case: %w", err)
	}

	if err := kekUseCase.Rotate(ctx); err != nil {
		return fmt.Errorf("failed to rotate kek: %w", err)
	}

	logger.Info("kek rotated successfully")
	return nil
}
