// Package domain defines the core user domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/vaultfs/internal/errors"
)

// Plan identifies a storage plan. Each plan maps to a fixed quota in bytes.
type Plan string

// Storage plans.
const (
	PlanFree       Plan = "free"
	PlanStandard   Plan = "standard"
	PlanPro        Plan = "pro"
	PlanPlus       Plan = "plus"
	PlanEnterprise Plan = "enterprise"
)

// PlanQuotas maps plans to quota bytes. Values can be overridden from
// configuration at container assembly time.
type PlanQuotas map[Plan]int64

// DefaultPlanQuotas returns the built-in plan quota table.
func DefaultPlanQuotas() PlanQuotas {
	return PlanQuotas{
		PlanFree:       1 << 30,   // 1 GiB
		PlanStandard:   20 << 30,  // 20 GiB
		PlanPro:        50 << 30,  // 50 GiB
		PlanPlus:       100 << 30, // 100 GiB
		PlanEnterprise: 1 << 40,   // 1 TiB
	}
}

// Quota returns the quota for a plan, falling back to the free tier for
// unknown plan tags.
func (q PlanQuotas) Quota(plan Plan) int64 {
	if bytes, ok := q[plan]; ok {
		return bytes
	}
	return q[PlanFree]
}

// User represents an account in the system.
//
// The wrapped DEK fields implement the confidentiality model: EncryptedDek is
// the user's data encryption key wrapped under a key derived from their
// password with DekSalt. DekKekVersion tracks the KEK generation current at
// the last rewrap. A reservation never takes UsedBytes past QuotaBytes; the
// storage layer checks this under a row lock. A plan downgrade can leave
// UsedBytes above QuotaBytes.
type User struct {
	ID                 uuid.UUID
	Name               string
	Handle             string
	Password           string // Argon2id verifier string, never the plaintext
	Roles              []string
	EncryptedDek       []byte
	DekNonce           []byte
	DekSalt            []byte
	DekKekVersion      int
	QuotaBytes         int64
	UsedBytes          int64
	Plan               Plan
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastPasswordChange *time.Time
}

// AvailableBytes returns the remaining quota, which can be negative after a
// plan downgrade below current usage.
func (u *User) AvailableBytes() int64 {
	return u.QuotaBytes - u.UsedBytes
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrDuplicateHandle indicates a user with the same handle already exists.
	ErrDuplicateHandle = errors.Wrap(errors.ErrConflict, "handle already taken")

	// ErrUnknownPlan indicates a plan tag outside the quota table.
	ErrUnknownPlan = errors.Wrap(errors.ErrInvalidInput, "unknown plan")
)
