// Package persistence provides database storage implementations.
package persistence

import (
	"fmt"

	"github.com/atas-platform/atas/internal/database"
)

// models lists every table managed by AutoMigrate. Embedding tables carry
// a configurable vector width and are created by their stores instead.
func models() []any {
	return []any{
		&UserModel{},
		&ProfileModel{},
		&OrganizationModel{},
		&MembershipModel{},
		&EventModel{},
		&BookingModel{},
		&NotificationModel{},
		&PostModel{},
		&CommentModel{},
		&LikeModel{},
		&FollowModel{},
		&TaskModel{},
	}
}

// AutoMigrate creates or updates the relational schema.
func AutoMigrate(db database.Database) error {
	if err := db.GORM().AutoMigrate(models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
