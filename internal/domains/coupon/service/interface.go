package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/coupon/model"
)

// CouponService owns the redemption ledger and coupon administration.
type CouponService interface {
	CreateCoupon(ctx context.Context, req model.CreateCouponRequest) (*model.Coupon, error)
	GetCoupon(ctx context.Context, couponID uuid.UUID) (*model.Coupon, error)
	ListCoupons(ctx context.Context, limit, offset int) ([]model.Coupon, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error)
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*model.RedeemCouponResponse, error)
	RecomputeUsage(ctx context.Context, couponID uuid.UUID) (int, error)
	RecomputeAllUsage(ctx context.Context) error
	DeactivateExpired(ctx context.Context) ([]string, error)
}
