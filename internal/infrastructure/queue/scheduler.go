package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redis asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterPeriodicJobs() error {
	if err := s.registerDeactivateExpiredCouponsJob(); err != nil {
		return err
	}
	if err := s.registerRecomputeCouponUsageJob(); err != nil {
		return err
	}
	if err := s.registerCleanupOldNotificationsJob(); err != nil {
		return err
	}
	if err := s.registerLowStockScanJob(); err != nil {
		return err
	}
	if err := s.registerSalesAnalyticsJob(); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Run() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}

// ================================================
// JOB 1: Deactivate Expired Coupons (Daily at midnight)
// ================================================
func (s *Scheduler) registerDeactivateExpiredCouponsJob() error {
	task := asynq.NewTask(shared.TypeDeactivateExpiredCoupons, nil)

	_, err := s.scheduler.Register(
		"0 0 * * *",
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register DeactivateExpiredCoupons job", err)
		return err
	}

	logger.Info("Registered DeactivateExpiredCoupons: daily at midnight", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 2: Recompute Coupon Usage (Every 30 minutes)
// ================================================
func (s *Scheduler) registerRecomputeCouponUsageJob() error {
	task := asynq.NewTask(shared.TypeRecomputeCouponUsage, nil)

	_, err := s.scheduler.Register(
		"*/30 * * * *",
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register RecomputeCouponUsage job", err)
		return err
	}

	logger.Info("Registered RecomputeCouponUsage: every 30 minutes", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 3: Cleanup Old Notifications (Daily at 1 AM)
// ================================================
func (s *Scheduler) registerCleanupOldNotificationsJob() error {
	task := asynq.NewTask(shared.TypeCleanupNotifications, nil)

	_, err := s.scheduler.Register(
		"0 1 * * *",
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register CleanupOldNotifications job", err)
		return err
	}

	logger.Info("Registered CleanupOldNotifications: daily at 1 AM", map[string]interface{}{
		"retention_days": s.jobConfig.NotificationRetentionDays,
	})
	return nil
}

// ================================================
// JOB 4: Low Stock Scan (Hourly)
// ================================================
func (s *Scheduler) registerLowStockScanJob() error {
	task := asynq.NewTask(shared.TypeCheckLowStock, nil)

	_, err := s.scheduler.Register(
		"0 * * * *",
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register LowStockScan job", err)
		return err
	}

	logger.Info("Registered LowStockScan: hourly", map[string]interface{}{
		"threshold": s.jobConfig.LowStockThreshold,
	})
	return nil
}

// ================================================
// JOB 5: Sales Analytics (Daily at 3 AM)
// ================================================
func (s *Scheduler) registerSalesAnalyticsJob() error {
	task := asynq.NewTask(shared.TypeGenerateSalesAnalytics, nil)

	_, err := s.scheduler.Register(
		"0 3 * * *",
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register SalesAnalytics job", err)
		return err
	}

	logger.Info("Registered SalesAnalytics: daily at 3 AM", map[string]interface{}{})
	return nil
}
