package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"marketplace-backend/internal/domains/order/repository"
	userRepo "marketplace-backend/internal/domains/user/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/utils"
	"marketplace-backend/pkg/cache"
	"marketplace-backend/pkg/logger"
)

const salesSummaryTTL = 48 * time.Hour

// SalesAnalyticsJob aggregates the previous day's order activity. Runs
// daily from the scheduler; the summary lands in the cache for dashboards
// and every admin gets an in-app digest.
type SalesAnalyticsJob struct {
	orderRepo repository.OrderRepository
	userRepo  userRepo.UserRepository
	enqueuer  shared.Enqueuer
	cache     cache.Cache
}

func NewSalesAnalyticsJob(
	orderRepo repository.OrderRepository,
	users userRepo.UserRepository,
	enqueuer shared.Enqueuer,
	c cache.Cache,
) *SalesAnalyticsJob {
	return &SalesAnalyticsJob{
		orderRepo: orderRepo,
		userRepo:  users,
		enqueuer:  enqueuer,
		cache:     c,
	}
}

func (j *SalesAnalyticsJob) Handle(ctx context.Context, t *asynq.Task) error {
	day := time.Now().UTC().AddDate(0, 0, -1)

	summary, err := j.orderRepo.SalesSummaryForDay(ctx, day)
	if err != nil {
		logger.Error("Sales analytics aggregation failed", err)
		return err
	}

	growth := j.revenueGrowth(ctx, summary.GrossRevenue, day.AddDate(0, 0, -1))

	key := "analytics:sales:" + summary.Day.Format("2006-01-02")
	if err := j.cache.Set(ctx, key, summary, salesSummaryTTL); err != nil {
		logger.Error("Failed to cache sales summary", err)
	}

	j.notifyAdmins(ctx, summary, growth)

	logger.Info("Sales summary computed", map[string]interface{}{
		"day":              summary.Day.Format("2006-01-02"),
		"orders_created":   summary.OrdersCreated,
		"orders_completed": summary.OrdersCompleted,
		"orders_cancelled": summary.OrdersCancelled,
		"gross_revenue":    summary.GrossRevenue.StringFixed(2),
		"growth_pct":       growth,
	})

	return nil
}

// revenueGrowth compares gross revenue with the day before. Returns nil
// when the baseline is zero or unavailable.
func (j *SalesAnalyticsJob) revenueGrowth(ctx context.Context, gross decimal.Decimal, previousDay time.Time) *string {
	previous, err := j.orderRepo.SalesSummaryForDay(ctx, previousDay)
	if err != nil || previous.GrossRevenue.IsZero() {
		return nil
	}

	pct := gross.Sub(previous.GrossRevenue).
		Div(previous.GrossRevenue).
		Mul(decimal.NewFromInt(100)).
		StringFixed(1)
	return &pct
}

func (j *SalesAnalyticsJob) notifyAdmins(ctx context.Context, summary *repository.SalesSummary, growth *string) {
	admins, err := j.userRepo.ListAdmins(ctx)
	if err != nil {
		logger.Error("Failed to list admins for sales digest", err)
		return
	}

	message := fmt.Sprintf("%s: %d orders created, %d completed, %d cancelled, revenue %s",
		summary.Day.Format("2006-01-02"),
		summary.OrdersCreated, summary.OrdersCompleted, summary.OrdersCancelled,
		summary.GrossRevenue.StringFixed(2))
	if growth != nil {
		message += fmt.Sprintf(" (%s%% vs previous day)", *growth)
	}

	data := map[string]interface{}{
		"day":              summary.Day.Format("2006-01-02"),
		"orders_created":   summary.OrdersCreated,
		"orders_completed": summary.OrdersCompleted,
		"orders_cancelled": summary.OrdersCancelled,
		"gross_revenue":    summary.GrossRevenue.StringFixed(2),
		"total_discount":   summary.TotalDiscount.StringFixed(2),
	}
	if growth != nil {
		data["growth_pct"] = *growth
	}

	for _, admin := range admins {
		payload := shared.DispatchNotificationPayload{
			UserID:           admin.ID,
			Title:            "Daily sales summary",
			Message:          message,
			NotificationType: "system",
			Data:             data,
		}
		task, err := utils.MarshalTask(shared.TypeDispatchNotification, payload)
		if err != nil {
			logger.Error("Failed to marshal sales digest", err)
			continue
		}
		if _, err := j.enqueuer.Enqueue(task, asynq.Queue(shared.QueueNotification)); err != nil {
			logger.Error("Failed to enqueue sales digest", err)
		}
	}
}
