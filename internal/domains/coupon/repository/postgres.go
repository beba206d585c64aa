package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-backend/internal/domains/coupon/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresCouponRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &postgresCouponRepository{
		pool: pool,
	}
}

// =====================================================
// TRANSACTION MANAGEMENT
// =====================================================

func (r *postgresCouponRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *postgresCouponRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (r *postgresCouponRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

// =====================================================
// COUPONS
// =====================================================

const couponColumns = `
	id, code, discount_type, discount_value, max_discount, min_order_value,
	valid_from, valid_to, is_active, max_uses, used_count,
	created_at, updated_at
`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MaxDiscount, &c.MinOrderValue,
		&c.ValidFrom, &c.ValidTo, &c.IsActive, &c.MaxUses, &c.UsedCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return &c, nil
}

func (r *postgresCouponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	query := `
		INSERT INTO coupons (
			id, code, discount_type, discount_value, max_discount, min_order_value,
			valid_from, valid_to, is_active, max_uses, used_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		coupon.ID, coupon.Code, coupon.DiscountType, coupon.DiscountValue,
		coupon.MaxDiscount, coupon.MinOrderValue,
		coupon.ValidFrom, coupon.ValidTo, coupon.IsActive, coupon.MaxUses, coupon.UsedCount,
	).Scan(&coupon.CreatedAt, &coupon.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

func (r *postgresCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return scanCoupon(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	return scanCoupon(r.pool.QueryRow(ctx, query, code))
}

// GetByCodeForUpdate serializes concurrent redemptions of the same coupon.
func (r *postgresCouponRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`
	return scanCoupon(tx.QueryRow(ctx, query, code))
}

func (r *postgresCouponRepository) List(ctx context.Context, limit, offset int) ([]model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}

	return coupons, rows.Err()
}

func (r *postgresCouponRepository) ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons c
		WHERE c.is_active = true
		  AND c.valid_from <= $2
		  AND c.valid_to >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM coupon_users cu
			WHERE cu.coupon_id = c.id AND cu.user_id = $1
		  )
		ORDER BY c.valid_to
	`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active coupons: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}

	return coupons, rows.Err()
}

func (r *postgresCouponRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM coupons WHERE is_active = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active coupon ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan coupon id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *postgresCouponRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE coupons SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set coupon active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}
	return nil
}

func (r *postgresCouponRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE coupons
		SET is_active = false, updated_at = NOW()
		WHERE is_active = true AND valid_to < $1
		RETURNING code
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate expired coupons: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan coupon code: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// =====================================================
// REDEMPTION LEDGER
// =====================================================

func (r *postgresCouponRepository) HasRedemptionWithTx(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM coupon_users WHERE coupon_id = $1 AND user_id = $2)`,
		couponID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check redemption: %w", err)
	}
	return exists, nil
}

func (r *postgresCouponRepository) CountRedemptionsWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM coupon_users WHERE coupon_id = $1`, couponID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count redemptions: %w", err)
	}
	return count, nil
}

func (r *postgresCouponRepository) InsertRedemptionWithTx(ctx context.Context, tx pgx.Tx, redemption *model.CouponUser) error {
	query := `
		INSERT INTO coupon_users (id, coupon_id, user_id, used_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(ctx, query, redemption.ID, redemption.CouponID, redemption.UserID, redemption.UsedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique (coupon_id, user_id) — lost a race with the same user
			return model.ErrAlreadyUsed
		}
		return fmt.Errorf("failed to insert redemption: %w", err)
	}

	return nil
}

const refreshUsedCountQuery = `
	UPDATE coupons
	SET used_count = (SELECT COUNT(*) FROM coupon_users WHERE coupon_id = $1),
	    updated_at = NOW()
	WHERE id = $1
	RETURNING used_count
`

func (r *postgresCouponRepository) RefreshUsedCount(ctx context.Context, couponID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, refreshUsedCountQuery, couponID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrCouponNotFound
		}
		return 0, fmt.Errorf("failed to refresh used_count: %w", err)
	}
	return count, nil
}

func (r *postgresCouponRepository) RefreshUsedCountWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, refreshUsedCountQuery, couponID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrCouponNotFound
		}
		return 0, fmt.Errorf("failed to refresh used_count: %w", err)
	}
	return count, nil
}
