package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/vaultfs/internal/app"
	"github.com/allisson/vaultfs/internal/config"
)

// RunCleanupUploads runs one reclamation sweep over abandoned pending uploads
// outside the server process. The same sweep runs periodically inside the
// server; this command exists for operators and cron-style scheduling.
func RunCleanupUploads(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	cleanup, err := container.CleanupUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize cleanup use case: %w", err)
	}

	result, err := cleanup.Run(ctx)
	if err != nil {
		return fmt.Errorf("cleanup sweep failed: %w", err)
	}

	logger.Info("cleanup sweep finished",
		slog.Int("reclaimed_uploads", result.ReclaimedUploads),
		slog.Int("orphaned_dirs", result.OrphanedStageDirs),
	)
	return nil
}
