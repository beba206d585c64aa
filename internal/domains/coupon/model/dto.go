package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// =====================================================
// CREATE / UPDATE COUPON (admin)
// =====================================================
type CreateCouponRequest struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	MinOrderValue decimal.Decimal  `json:"min_order_value"`
	ValidFrom     time.Time        `json:"valid_from"`
	ValidTo       time.Time        `json:"valid_to"`
	MaxUses       int              `json:"max_uses"`
}

func (req CreateCouponRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Code, validation.Required, validation.Length(2, 64)),
		validation.Field(&req.DiscountType, validation.Required, validation.In(DiscountTypePercentage, DiscountTypeFlat)),
		validation.Field(&req.MaxUses, validation.Required, validation.Min(1)),
		validation.Field(&req.ValidTo, validation.Required, validation.By(func(interface{}) error {
			if !req.ValidTo.After(req.ValidFrom) {
				return validation.NewError("validation_window", "valid_to must be after valid_from")
			}
			return nil
		})),
	)
}

// =====================================================
// REDEEM
// =====================================================
type RedeemCouponRequest struct {
	Code string `json:"code"`
}

func (req RedeemCouponRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Code, validation.Required),
	)
}

type RedeemCouponResponse struct {
	Coupon *Coupon   `json:"coupon"`
	UsedAt time.Time `json:"used_at"`
}
