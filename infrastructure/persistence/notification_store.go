package persistence

import (
	"context"

	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/database"
)

// NotificationStore implements notification.Store using GORM.
type NotificationStore struct {
	database.Repository[notification.Notification, NotificationModel]
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db database.Database) NotificationStore {
	return NotificationStore{
		Repository: database.NewRepository[notification.Notification, NotificationModel](db, NotificationMapper{}, "notification"),
	}
}

// Get retrieves a notification by id.
func (s NotificationStore) Get(ctx context.Context, id int64) (notification.Notification, error) {
	n, err := s.FindOne(ctx, repository.WithID(id))
	return n, translate(err)
}

// ForUser lists a user's notifications, newest first.
func (s NotificationStore) ForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]notification.Notification, error) {
	opts := []repository.Option{
		repository.WithUserID(userID),
		repository.WithOrderDesc("created_at"),
		repository.WithOrderDesc("id"),
	}
	if unreadOnly {
		opts = append(opts, repository.WithCondition("read", false))
	}
	if limit > 0 {
		opts = append(opts, repository.WithLimit(limit))
	}
	return s.Find(ctx, opts...)
}

// Save creates or updates a notification.
func (s NotificationStore) Save(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	saved, err := s.Repository.Save(ctx, n)
	return saved, translate(err)
}
