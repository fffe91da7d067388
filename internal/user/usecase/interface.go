// Package usecase implements user business logic: registration support,
// storage quota accounting and plan management.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/user/domain"
)

// UserRepository defines user repository operations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByHandle(ctx context.Context, handle string) (*domain.User, error)
	UpdatePassword(ctx context.Context, user *domain.User) error
	LockForUpdate(ctx context.Context, id uuid.UUID) (quotaBytes, usedBytes int64, err error)
	AddUsedBytes(ctx context.Context, id uuid.UUID, n int64) error
	SubtractUsedBytes(ctx context.Context, id uuid.UUID, n int64) error
	UpdatePlan(ctx context.Context, id uuid.UUID, plan domain.Plan, quotaBytes int64) error
	SetUsedBytes(ctx context.Context, id uuid.UUID, n int64) error
}

// FileUsageRepository reports live storage consumption from file records.
type FileUsageRepository interface {
	// SumActiveSizes sums file_size over the user's non-deleted completed files.
	SumActiveSizes(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Reservation is the outcome of a quota reserve attempt.
type Reservation struct {
	OK        bool
	Available int64
	UsedBytes int64
}

// QuotaUseCase is the storage quota engine. Reserve and Rollback are atomic
// with respect to concurrent callers for the same user; commit is implicit
// because Reserve already moved the counter.
type QuotaUseCase interface {
	Reserve(ctx context.Context, userID uuid.UUID, n int64) (Reservation, error)
	Rollback(ctx context.Context, userID uuid.UUID, n int64) error
	ChangePlan(ctx context.Context, userID uuid.UUID, plan domain.Plan) error
	Recalculate(ctx context.Context, userID uuid.UUID) (int64, error)
	StorageInfo(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}
