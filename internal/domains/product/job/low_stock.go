package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/utils"
	"marketplace-backend/pkg/logger"
)

// LowStockJob scans for products at or under the stock threshold and
// raises a stock_alert notification to each seller. Runs hourly.
type LowStockJob struct {
	productRepo repository.ProductRepository
	enqueuer    shared.Enqueuer
	threshold   int
}

func NewLowStockJob(productRepo repository.ProductRepository, enqueuer shared.Enqueuer, threshold int) *LowStockJob {
	return &LowStockJob{
		productRepo: productRepo,
		enqueuer:    enqueuer,
		threshold:   threshold,
	}
}

func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	products, err := j.productRepo.ListLowStock(ctx, j.threshold)
	if err != nil {
		logger.Error("Low-stock scan failed", err)
		return err
	}

	for _, p := range products {
		payload := shared.DispatchNotificationPayload{
			UserID:           p.SellerID,
			Title:            "Low stock alert",
			Message:          fmt.Sprintf("%s has only %d unit(s) left", p.Name, p.Stock),
			NotificationType: "stock_alert",
			Data: map[string]interface{}{
				"product_id": p.ID.String(),
				"stock":      p.Stock,
			},
		}
		task, err := utils.MarshalTask(shared.TypeDispatchNotification, payload)
		if err != nil {
			logger.Error("Failed to marshal stock alert", err)
			continue
		}
		if _, err := j.enqueuer.Enqueue(task, asynq.Queue(shared.QueueNotification)); err != nil {
			logger.Error("Failed to enqueue stock alert", err)
		}
	}

	logger.Info("Low-stock scan finished", map[string]interface{}{
		"flagged":   len(products),
		"threshold": j.threshold,
	})
	return nil
}
