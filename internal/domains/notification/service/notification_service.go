package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/notification/model"
	"marketplace-backend/internal/domains/notification/repository"
	userRepo "marketplace-backend/internal/domains/user/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/cache"
	"marketplace-backend/pkg/logger"
)

const unreadCountTTL = 5 * time.Minute

func unreadCountKey(userID uuid.UUID) string {
	return "notifications:unread:" + userID.String()
}

// =====================================================
// NOTIFICATION SERVICE IMPLEMENTATION
// =====================================================
type notificationService struct {
	repo     repository.NotificationRepository
	userRepo userRepo.UserRepository
	cache    cache.Cache
	pusher   Pusher
	email    EmailSender
}

func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo userRepo.UserRepository,
	c cache.Cache,
	pusher Pusher,
	email EmailSender,
) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		cache:    c,
		pusher:   pusher,
		email:    email,
	}
}

// =====================================================
// DISPATCH
// =====================================================
// Persist first, then fan out. The delivery channels are isolated: a
// failed push never blocks the email attempt and vice versa; channel
// failures are logged, not returned, because the triggering write has
// already committed.

func (s *notificationService) Notify(ctx context.Context, payload shared.DispatchNotificationPayload) (*model.Notification, error) {
	if !model.IsValidType(payload.NotificationType) {
		return nil, model.ErrInvalidType
	}

	n := &model.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Title:   payload.Title,
		Message: payload.Message,
		Type:    payload.NotificationType,
		Data:    payload.Data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.invalidateUnreadCount(ctx, n.UserID)

	// Channel 1: real-time push to any live connection
	if s.pusher != nil {
		if err := s.pusher.PushToUser(n.UserID, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		}); err != nil {
			logger.Error("Realtime push failed", err)
		}
	}

	// Channel 2: email. Order lifecycle mails carry full order context and
	// go out through their own task; this path covers coupon expiry.
	if n.Type == model.TypeCouponExpiry && s.email != nil {
		if err := s.sendEmail(ctx, n); err != nil {
			logger.Error("Notification email failed", err)
		}
	}

	return n, nil
}

func (s *notificationService) sendEmail(ctx context.Context, n *model.Notification) error {
	user, err := s.userRepo.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}
	return s.email.Send(user.Email, n.Title, n.Message)
}

// =====================================================
// READS
// =====================================================

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var cached int
	if found, err := s.cache.Get(ctx, unreadCountKey(userID), &cached); err == nil && found {
		return cached, nil
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, unreadCountKey(userID), count, unreadCountTTL); err != nil {
		logger.Error("Failed to cache unread count", err)
	}

	return count, nil
}

// =====================================================
// READ FLAG
// =====================================================

// MarkRead validates ownership before mutating. Marking an already-read
// notification is an idempotent success.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return model.ErrNotOwner
	}
	if n.IsRead {
		return nil
	}

	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		return err
	}

	s.invalidateUnreadCount(ctx, userID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidateUnreadCount(ctx, userID)
	return affected, nil
}

// =====================================================
// RETENTION
// =====================================================

func (s *notificationService) CleanupOld(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func (s *notificationService) invalidateUnreadCount(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, unreadCountKey(userID)); err != nil {
		logger.Error("Failed to invalidate unread count", err)
	}
}
