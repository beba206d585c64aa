package main

import (
	"github.com/hibiken/asynq"

	couponJob "marketplace-backend/internal/domains/coupon/job"
	mediaJob "marketplace-backend/internal/domains/media/job"
	notifJob "marketplace-backend/internal/domains/notification/job"
	orderJob "marketplace-backend/internal/domains/order/job"
	productJob "marketplace-backend/internal/domains/product/job"
	"marketplace-backend/internal/infrastructure/email"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/container"
)

// HandlerRegistry holds every worker-side task handler.
type HandlerRegistry struct {
	notificationJobs *notifJob.NotificationJobs
	couponJobs       *couponJob.CouponJobs
	orderEmailJob    *email.OrderEmailJob
	processMediaJob  *mediaJob.ProcessMediaJob
	lowStockJob      *productJob.LowStockJob
	salesJob         *orderJob.SalesAnalyticsJob
}

func newHandlerRegistry(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		notificationJobs: notifJob.NewNotificationJobs(c.NotificationService, c.Config.Jobs.NotificationRetentionDays),
		couponJobs:       couponJob.NewCouponJobs(c.CouponService),
		orderEmailJob:    email.NewOrderEmailJob(c.OrderRepo, c.UserRepo, c.EmailSender),
		processMediaJob:  mediaJob.NewProcessMediaJob(c.MediaService),
		lowStockJob:      productJob.NewLowStockJob(c.ProductRepo, c.AsynqClient, c.Config.Jobs.LowStockThreshold),
		salesJob:         orderJob.NewSalesAnalyticsJob(c.OrderRepo, c.UserRepo, c.AsynqClient, c.Cache),
	}
}

// RegisterHandlers binds each task type to its handler on the mux.
func (r *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeDispatchNotification, r.notificationJobs.HandleDispatch)
	mux.HandleFunc(shared.TypeCleanupNotifications, r.notificationJobs.HandleCleanup)
	mux.HandleFunc(shared.TypeSendOrderEmail, r.orderEmailJob.Handle)
	mux.HandleFunc(shared.TypeProcessProductMedia, r.processMediaJob.Handle)
	mux.HandleFunc(shared.TypeDeactivateExpiredCoupons, r.couponJobs.HandleDeactivateExpired)
	mux.HandleFunc(shared.TypeRecomputeCouponUsage, r.couponJobs.HandleRecomputeUsage)
	mux.HandleFunc(shared.TypeCheckLowStock, r.lowStockJob.Handle)
	mux.HandleFunc(shared.TypeGenerateSalesAnalytics, r.salesJob.Handle)
}
