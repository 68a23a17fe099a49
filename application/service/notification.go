package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/notification"
)

// DefaultNotificationLimit bounds notification listings.
const DefaultNotificationLimit = 50

// Notifications stores notifications and pushes them to connected clients.
type Notifications struct {
	store     notification.Store
	publisher notification.Publisher
	logger    *slog.Logger
}

// NewNotifications creates a Notifications service. publisher may be nil.
func NewNotifications(store notification.Store, publisher notification.Publisher, logger *slog.Logger) *Notifications {
	return &Notifications{store: store, publisher: publisher, logger: logger}
}

// Notify saves a notification for userID and publishes it. A failure is
// logged and swallowed; notifying never fails the operation that caused it.
func (s *Notifications) Notify(ctx context.Context, userID int64, kind notification.Kind, message string) {
	n, err := s.store.Save(ctx, notification.New(userID, kind, message))
	if err != nil {
		s.logger.Warn("save notification failed",
			slog.Int64("user_id", userID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, n)
	}
}

// List returns the actor's newest notifications.
func (s *Notifications) List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]notification.Notification, error) {
	if limit <= 0 || limit > DefaultNotificationLimit {
		limit = DefaultNotificationLimit
	}
	return s.store.ForUser(ctx, actor.UserID, unreadOnly, limit)
}

// MarkRead flags one of the actor's notifications as read.
func (s *Notifications) MarkRead(ctx context.Context, actor Actor, id int64) (notification.Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return notification.Notification{}, err
	}
	// Other users' notifications are reported as missing.
	if n.UserID() != actor.UserID {
		return notification.Notification{}, fmt.Errorf("%w: notification %d", domain.ErrNotFound, id)
	}
	if n.Read() {
		return n, nil
	}
	return s.store.Save(ctx, n.MarkRead())
}
