package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/database"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	"github.com/allisson/vaultfs/internal/user/domain"
)

// quotaUseCase implements QuotaUseCase.
//
// Reserve takes a row-level exclusive lock on the user row before reading the
// counters. Without the lock, two concurrent initiations could both observe
// available >= n and both commit, exceeding the quota; the lock totally orders
// reservations per user. There is no quota CHECK constraint on the table: a
// plan downgrade may legitimately leave used_bytes above quota_bytes, and only
// new reservations are blocked while the account is over quota.
type quotaUseCase struct {
	txManager database.TxManager
	userRepo  UserRepository
	fileUsage FileUsageRepository
	quotas    domain.PlanQuotas
}

// NewQuotaUseCase creates a new QuotaUseCase.
func NewQuotaUseCase(
	txManager database.TxManager,
	userRepo UserRepository,
	fileUsage FileUsageRepository,
	quotas domain.PlanQuotas,
) QuotaUseCase {
	return &quotaUseCase{
		txManager: txManager,
		userRepo:  userRepo,
		fileUsage: fileUsage,
		quotas:    quotas,
	}
}

// Reserve atomically checks and reserves n bytes against the user's quota.
// On success used_bytes has already been incremented; a failed upload must be
// compensated with Rollback.
func (q *quotaUseCase) Reserve(
	ctx context.Context,
	userID uuid.UUID,
	n int64,
) (Reservation, error) {
	var res Reservation

	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		quotaBytes, usedBytes, err := q.userRepo.LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		available := quotaBytes - usedBytes
		if n > available {
			res = Reservation{OK: false, Available: available, UsedBytes: usedBytes}
			// Not an error for the transaction: the lock is released by the
			// commit and the caller reads res.OK.
			return nil
		}

		if err := q.userRepo.AddUsedBytes(ctx, userID, n); err != nil {
			return err
		}

		res = Reservation{OK: true, Available: available, UsedBytes: usedBytes + n}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	if !res.OK {
		return res, apperrors.ErrQuotaExceeded
	}
	return res, nil
}

// Rollback releases a prior reservation. The decrement is clamped at zero in
// SQL, so a duplicate rollback can never drive the counter negative.
func (q *quotaUseCase) Rollback(ctx context.Context, userID uuid.UUID, n int64) error {
	if n <= 0 {
		return nil
	}
	return q.userRepo.SubtractUsedBytes(ctx, userID, n)
}

// ChangePlan updates the user's plan and quota. A downgrade below current
// usage is accepted: the account goes over quota and only new reservations
// are blocked until usage falls back under the limit.
func (q *quotaUseCase) ChangePlan(ctx context.Context, userID uuid.UUID, plan domain.Plan) error {
	quotaBytes, ok := q.quotas[plan]
	if !ok {
		return domain.ErrUnknownPlan
	}
	return q.userRepo.UpdatePlan(ctx, userID, plan, quotaBytes)
}

// Recalculate recomputes used_bytes from live file records under the row lock
// and returns the corrected value.
func (q *quotaUseCase) Recalculate(ctx context.Context, userID uuid.UUID) (int64, error) {
	var actual int64

	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, _, err := q.userRepo.LockForUpdate(ctx, userID); err != nil {
			return err
		}

		sum, err := q.fileUsage.SumActiveSizes(ctx, userID)
		if err != nil {
			return err
		}

		actual = sum
		return q.userRepo.SetUsedBytes(ctx, userID, sum)
	})
	if err != nil {
		return 0, err
	}
	return actual, nil
}

// StorageInfo returns the user record carrying quota and usage counters.
func (q *quotaUseCase) StorageInfo(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return q.userRepo.GetByID(ctx, userID)
}
