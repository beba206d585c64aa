package job

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/domains/notification/service"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"
)

// NotificationJobs holds the worker-side handlers for the notification
// domain: the dispatch fan-out and the retention purge.
type NotificationJobs struct {
	notificationService service.NotificationService
	retentionDays       int
}

func NewNotificationJobs(notificationService service.NotificationService, retentionDays int) *NotificationJobs {
	return &NotificationJobs{
		notificationService: notificationService,
		retentionDays:       retentionDays,
	}
}

// HandleDispatch consumes notification:dispatch tasks enqueued by the
// domain services after their primary write committed. Task execution is
// at-least-once; duplicate notification rows are tolerated.
func (j *NotificationJobs) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload shared.DispatchNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logger.Error("Invalid dispatch payload", err)
		return err
	}

	if _, err := j.notificationService.Notify(ctx, payload); err != nil {
		logger.Error("Notification dispatch failed", err)
		return err
	}

	return nil
}

// HandleCleanup purges notifications older than the retention window.
// Runs daily from the scheduler.
func (j *NotificationJobs) HandleCleanup(ctx context.Context, t *asynq.Task) error {
	days := j.retentionDays
	var payload shared.CleanupNotificationsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err == nil && payload.OlderThanDays > 0 {
			days = payload.OlderThanDays
		}
	}

	purged, err := j.notificationService.CleanupOld(ctx, days)
	if err != nil {
		logger.Error("Notification cleanup failed", err)
		return err
	}

	logger.Info("Notification cleanup finished", map[string]interface{}{
		"purged":          purged,
		"older_than_days": days,
	})
	return nil
}
