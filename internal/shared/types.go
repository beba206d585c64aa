package shared

import (
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Asynq task type names. One constant per background job.
const (
	TypeDispatchNotification = "notification:dispatch"
	TypeCleanupNotifications = "notification:cleanup_old"

	TypeSendOrderEmail = "email:order"

	TypeProcessProductMedia = "media:process"

	TypeDeactivateExpiredCoupons = "coupon:deactivate_expired"
	TypeRecomputeCouponUsage     = "coupon:recompute_usage"

	TypeCheckLowStock          = "product:check_low_stock"
	TypeGenerateSalesAnalytics = "order:sales_analytics"
)

// Queue names, weighted in the worker's asynq.Config.
const (
	QueueNotification = "notification"
	QueueEmail        = "email"
	QueueMedia        = "media"
	QueueMaintenance  = "maintenance"
)

// Enqueuer is the slice of asynq.Client the services need. Keeping it an
// interface lets tests capture enqueued tasks without Redis.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Email recipient types for order lifecycle emails.
const (
	RecipientBuyer  = "buyer"
	RecipientSeller = "seller"
)

// DispatchNotificationPayload asks the worker to persist a notification and
// push it to the user's live connections.
type DispatchNotificationPayload struct {
	UserID           uuid.UUID              `json:"user_id"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	NotificationType string                 `json:"notification_type"`
	Data             map[string]interface{} `json:"data,omitempty"`
}

// SendOrderEmailPayload asks the worker to email one order counterparty.
type SendOrderEmailPayload struct {
	OrderID       uuid.UUID `json:"order_id"`
	RecipientType string    `json:"recipient_type"` // buyer | seller
}

// ProcessMediaPayload asks the worker to post-process one uploaded media.
type ProcessMediaPayload struct {
	MediaID uuid.UUID `json:"media_id"`
}

// CleanupNotificationsPayload bounds the retention purge.
type CleanupNotificationsPayload struct {
	OlderThanDays int `json:"older_than_days"`
}

// RecomputeCouponUsagePayload; zero CouponID means all active coupons.
type RecomputeCouponUsagePayload struct {
	CouponID uuid.UUID `json:"coupon_id,omitempty"`
}
