package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	filesDomain "github.com/allisson/vaultfs/internal/files/domain"
)

// PostgreSQLUploadStatsRepository persists daily upload counters keyed by
// (user, date), bucketed at the large-file threshold.
type PostgreSQLUploadStatsRepository struct {
	db *sql.DB
}

// NewPostgreSQLUploadStatsRepository creates a new upload stats repository.
func NewPostgreSQLUploadStatsRepository(db *sql.DB) *PostgreSQLUploadStatsRepository {
	return &PostgreSQLUploadStatsRepository{db: db}
}

// RecordUpload upserts today's row for the user, bumping the bucket the file
// size falls into.
func (p *PostgreSQLUploadStatsRepository) RecordUpload(
	ctx context.Context,
	userID uuid.UUID,
	day time.Time,
	fileSize int64,
) error {
	querier := database.GetTx(ctx, p.db)

	large := 0
	small := 0
	if fileSize > filesDomain.LargeFileThreshold {
		large = 1
	} else {
		small = 1
	}

	query := `INSERT INTO daily_upload_stats (user_id, date, large_files, small_files)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (user_id, date)
			  DO UPDATE SET large_files = daily_upload_stats.large_files + $3,
							small_files = daily_upload_stats.small_files + $4`

	_, err := querier.ExecContext(ctx, query, userID, day.UTC().Truncate(24*time.Hour), large, small)
	if err != nil {
		return apperrors.Wrap(err, "failed to record upload stats")
	}
	return nil
}
