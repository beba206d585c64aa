package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// DISCOUNT TYPE CONSTANTS
// =====================================================
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFlat       = "flat"
)

// =====================================================
// ENTITY: Coupon
// =====================================================
// UsedCount is a cached projection over coupon_users. The redemption cap
// check never trusts it; it counts the ledger live inside the redeem
// transaction.
type Coupon struct {
	ID            uuid.UUID        `json:"id"`
	Code          string           `json:"code"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	ValidFrom     time.Time        `json:"valid_from"`
	ValidTo       time.Time        `json:"valid_to"`
	IsActive      bool             `json:"is_active"`
	MaxUses       int              `json:"max_uses"`
	UsedCount     int              `json:"used_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsWithinWindow reports whether now falls inside the validity window.
func (c *Coupon) IsWithinWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

// =====================================================
// ENTITY: CouponUser
// =====================================================
// One row per (coupon, user) pair, enforced by a unique constraint.
// Rows are created only through redemption and never updated.
type CouponUser struct {
	ID        uuid.UUID `json:"id"`
	CouponID  uuid.UUID `json:"coupon_id"`
	UserID    uuid.UUID `json:"user_id"`
	UsedAt    time.Time `json:"used_at"`
}
