package services

import (
	"context"
	"log/slog"
	"time"

	"maternar/internal/events"
	"maternar/models"
	"maternar/store"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationService struct {
	store  store.Store
	bus    events.Bus
	logger *slog.Logger
	now    func() time.Time
}

func NewNotificationService(s store.Store, bus events.Bus, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: s, bus: bus, logger: logger, now: time.Now}
}

func (ns *NotificationService) List(ctx context.Context, userID uint, limit int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return ns.store.ListNotifications(ctx, userID, limit, unreadOnly)
}

// Notify stores a notification and pushes it to the user's live
// subscribers. Publishing failures are logged, not returned.
func (ns *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if err := ns.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	if err := ns.bus.Publish(ctx, events.NotificationTopic(n.UserID), n); err != nil {
		ns.logger.Warn("failed to publish notification", "user_id", n.UserID, "error", err)
	}
	return nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return notFound(ns.store.MarkNotificationRead(ctx, userID, id, ns.now()), ErrNotFound)
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return ns.store.MarkAllNotificationsRead(ctx, userID, ns.now())
}

func (ns *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return ns.store.CountUnreadNotifications(ctx, userID)
}
