package job

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/coupon/service"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"
)

// CouponJobs holds the scheduled maintenance handlers for the coupon
// domain: expiry sweep and used_count reconciliation.
type CouponJobs struct {
	couponService service.CouponService
}

func NewCouponJobs(couponService service.CouponService) *CouponJobs {
	return &CouponJobs{
		couponService: couponService,
	}
}

// HandleDeactivateExpired runs daily at midnight. Flips expired coupons
// inactive and notifies admins with the affected codes.
func (j *CouponJobs) HandleDeactivateExpired(ctx context.Context, t *asynq.Task) error {
	codes, err := j.couponService.DeactivateExpired(ctx)
	if err != nil {
		logger.Error("Coupon expiry sweep failed", err)
		return err
	}

	logger.Info("Coupon expiry sweep finished", map[string]interface{}{
		"deactivated": len(codes),
	})
	return nil
}

// HandleRecomputeUsage reconciles used_count with the redemption ledger.
// An empty payload or nil coupon id means every active coupon.
func (j *CouponJobs) HandleRecomputeUsage(ctx context.Context, t *asynq.Task) error {
	var payload shared.RecomputeCouponUsagePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("Invalid recompute payload", err)
			return err
		}
	}

	if payload.CouponID != uuid.Nil {
		_, err := j.couponService.RecomputeUsage(ctx, payload.CouponID)
		return err
	}

	return j.couponService.RecomputeAllUsage(ctx)
}
