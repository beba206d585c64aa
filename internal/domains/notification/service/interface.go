package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/notification/model"
	"marketplace-backend/internal/shared"
)

// Pusher is the real-time transport: deliver a payload to every active
// connection of one user. Implemented by the websocket hub.
type Pusher interface {
	PushToUser(userID uuid.UUID, payload interface{}) error
}

// EmailSender is the synchronous email transport contract.
type EmailSender interface {
	Send(to, subject, body string) error
}

// NotificationService persists notifications and fans them out across the
// decoupled delivery channels.
type NotificationService interface {
	Notify(ctx context.Context, payload shared.DispatchNotificationPayload) (*model.Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CleanupOld(ctx context.Context, olderThanDays int) (int64, error)
}
