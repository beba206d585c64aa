package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"marketplace-backend/internal/domains/coupon/model"
)

// CouponRepository is the persistence boundary for coupons and the
// redemption ledger. Redemption runs inside one transaction with the
// coupon row locked, so the cap check and the ledger insert are atomic.
type CouponRepository interface {
	// Transaction management
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// Coupons
	Create(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	// GetByCodeForUpdate locks the coupon row for the duration of tx.
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]model.Coupon, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.Coupon, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// DeactivateExpired flips is_active off for every still-active coupon
	// whose window has passed and returns the affected codes.
	DeactivateExpired(ctx context.Context, now time.Time) ([]string, error)

	// Redemption ledger
	HasRedemptionWithTx(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error)
	CountRedemptionsWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (int, error)
	InsertRedemptionWithTx(ctx context.Context, tx pgx.Tx, redemption *model.CouponUser) error
	// RefreshUsedCount recomputes used_count from the ledger. Idempotent.
	RefreshUsedCount(ctx context.Context, couponID uuid.UUID) (int, error)
	RefreshUsedCountWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (int, error)
}
