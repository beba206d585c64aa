package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/coupon/model"
	"marketplace-backend/internal/domains/coupon/repository"
	userRepo "marketplace-backend/internal/domains/user/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/utils"
	"marketplace-backend/pkg/logger"
)

// =====================================================
// COUPON SERVICE IMPLEMENTATION
// =====================================================
type couponService struct {
	couponRepo repository.CouponRepository
	userRepo   userRepo.UserRepository
	enqueuer   shared.Enqueuer
}

func NewCouponService(
	couponRepo repository.CouponRepository,
	userRepo userRepo.UserRepository,
	enqueuer shared.Enqueuer,
) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		userRepo:   userRepo,
		enqueuer:   enqueuer,
	}
}

// =====================================================
// ADMIN: CREATE
// =====================================================

func (s *couponService) CreateCoupon(ctx context.Context, req model.CreateCouponRequest) (*model.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Invalid coupon", err)
	}

	coupon := &model.Coupon{
		ID:            uuid.New(),
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxDiscount:   req.MaxDiscount,
		MinOrderValue: req.MinOrderValue,
		ValidFrom:     req.ValidFrom,
		ValidTo:       req.ValidTo,
		IsActive:      true,
		MaxUses:       req.MaxUses,
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		if err == model.ErrDuplicateCode {
			return nil, model.NewCouponError(model.ErrCodeDuplicateCode, "Coupon code already exists", err)
		}
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to create coupon", err)
	}

	return coupon, nil
}

// =====================================================
// READS
// =====================================================

func (s *couponService) GetCoupon(ctx context.Context, couponID uuid.UUID) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(ctx, couponID)
	if err != nil {
		if err == model.ErrCouponNotFound {
			return nil, model.NewCouponError(model.ErrCodeCouponNotFound, "Coupon not found", err)
		}
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) ListCoupons(ctx context.Context, limit, offset int) ([]model.Coupon, error) {
	return s.couponRepo.List(ctx, limit, offset)
}

func (s *couponService) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]model.Coupon, error) {
	return s.couponRepo.ListActiveForUser(ctx, userID, time.Now())
}

// =====================================================
// REDEEM - ATOMIC UNIT
// =====================================================
// All four checks plus the ledger insert run inside one transaction with
// the coupon row locked, so concurrent redemptions near the cap boundary
// cannot both pass.

func (s *couponService) Redeem(ctx context.Context, userID uuid.UUID, code string) (*model.RedeemCouponResponse, error) {
	tx, err := s.couponRepo.BeginTx(ctx)
	if err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to begin transaction", err)
	}
	defer s.couponRepo.RollbackTx(ctx, tx)

	// Check 1: exists and active
	coupon, err := s.couponRepo.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, model.NewCouponError(model.ErrCodeCouponNotFound, "Coupon not found", err)
	}
	if !coupon.IsActive {
		return nil, model.NewCouponError(model.ErrCodeCouponInactive, "Coupon is not active", model.ErrCouponInactive)
	}

	// Check 2: validity window
	now := time.Now()
	if !coupon.IsWithinWindow(now) {
		return nil, model.NewCouponError(model.ErrCodeCouponExpired, "Coupon is outside its validity window", model.ErrCouponExpired)
	}

	// Check 3: one redemption per user
	used, err := s.couponRepo.HasRedemptionWithTx(ctx, tx, coupon.ID, userID)
	if err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to check prior redemption", err)
	}
	if used {
		return nil, model.NewCouponError(model.ErrCodeAlreadyUsed, "Coupon already redeemed", model.ErrAlreadyUsed)
	}

	// Check 4: usage cap, counted live from the ledger — used_count is a
	// cached projection and not trustworthy here.
	count, err := s.couponRepo.CountRedemptionsWithTx(ctx, tx, coupon.ID)
	if err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to count redemptions", err)
	}
	if count >= coupon.MaxUses {
		return nil, model.NewCouponError(model.ErrCodeUsageLimitReached, "Coupon usage limit reached", model.ErrUsageLimitReached)
	}

	redemption := &model.CouponUser{
		ID:       uuid.New(),
		CouponID: coupon.ID,
		UserID:   userID,
		UsedAt:   now,
	}
	if err := s.couponRepo.InsertRedemptionWithTx(ctx, tx, redemption); err != nil {
		if err == model.ErrAlreadyUsed {
			return nil, model.NewCouponError(model.ErrCodeAlreadyUsed, "Coupon already redeemed", err)
		}
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to record redemption", err)
	}

	newCount, err := s.couponRepo.RefreshUsedCountWithTx(ctx, tx, coupon.ID)
	if err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to refresh used count", err)
	}

	if err := s.couponRepo.CommitTx(ctx, tx); err != nil {
		return nil, model.NewCouponError(model.ErrCodeInvalidCoupon, "Failed to commit redemption", err)
	}

	coupon.UsedCount = newCount
	return &model.RedeemCouponResponse{Coupon: coupon, UsedAt: now}, nil
}

// =====================================================
// MAINTENANCE
// =====================================================

func (s *couponService) RecomputeUsage(ctx context.Context, couponID uuid.UUID) (int, error) {
	return s.couponRepo.RefreshUsedCount(ctx, couponID)
}

func (s *couponService) RecomputeAllUsage(ctx context.Context) error {
	ids, err := s.couponRepo.ListActiveIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.couponRepo.RefreshUsedCount(ctx, id); err != nil {
			logger.Error("Failed to refresh coupon used_count", err)
		}
	}
	return nil
}

// DeactivateExpired flips expired coupons inactive and notifies every
// administrative user with the batch outcome.
func (s *couponService) DeactivateExpired(ctx context.Context) ([]string, error) {
	codes, err := s.couponRepo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}

	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		logger.Error("Failed to list admins for coupon expiry notice", err)
		return codes, nil
	}

	message := fmt.Sprintf("%d coupon(s) expired and were deactivated: %s", len(codes), strings.Join(codes, ", "))
	for _, admin := range admins {
		payload := shared.DispatchNotificationPayload{
			UserID:           admin.ID,
			Title:            "Coupons deactivated",
			Message:          message,
			NotificationType: "coupon_expiry",
			Data: map[string]interface{}{
				"codes": codes,
			},
		}
		task, err := utils.MarshalTask(shared.TypeDispatchNotification, payload)
		if err != nil {
			logger.Error("Failed to marshal coupon expiry notification", err)
			continue
		}
		if _, err := s.enqueuer.Enqueue(task, asynq.Queue(shared.QueueNotification)); err != nil {
			logger.Error("Failed to enqueue coupon expiry notification", err)
		}
	}

	return codes, nil
}
