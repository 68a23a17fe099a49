// Package notification provides per-user notifications shared by both
// backends.
package notification

import (
	"context"
	"time"
)

// Kind classifies a notification.
type Kind string

// Kind values.
const (
	KindBookingConfirmed Kind = "booking_confirmed"
	KindBookingCancelled Kind = "booking_cancelled"
	KindEventCancelled   Kind = "event_cancelled"
	KindMemberAdded      Kind = "member_added"
	KindPostLiked        Kind = "post_liked"
	KindPostCommented    Kind = "post_commented"
	KindNewFollower      Kind = "new_follower"
)

// Notification is a message addressed to one user.
type Notification struct {
	id        int64
	userID    int64
	kind      Kind
	message   string
	read      bool
	createdAt time.Time
}

// New creates an unread notification.
func New(userID int64, kind Kind, message string) Notification {
	return Notification{userID: userID, kind: kind, message: message, createdAt: time.Now().UTC()}
}

// Restore reconstructs a stored Notification.
func Restore(id, userID int64, kind Kind, message string, read bool, createdAt time.Time) Notification {
	return Notification{id: id, userID: userID, kind: kind, message: message, read: read, createdAt: createdAt}
}

// MarkRead returns the notification flagged as read.
func (n Notification) MarkRead() Notification {
	n.read = true
	return n
}

// ID returns the notification id.
func (n Notification) ID() int64 { return n.id }

// UserID returns the recipient.
func (n Notification) UserID() int64 { return n.userID }

// Kind returns the notification kind.
func (n Notification) Kind() Kind { return n.kind }

// Message returns the human-readable text.
func (n Notification) Message() string { return n.message }

// Read reports whether the recipient has seen it.
func (n Notification) Read() bool { return n.read }

// CreatedAt returns when it was raised.
func (n Notification) CreatedAt() time.Time { return n.createdAt }

// Store persists notifications.
type Store interface {
	Get(ctx context.Context, id int64) (Notification, error)
	ForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error)
	Save(ctx context.Context, n Notification) (Notification, error)
}

// Publisher pushes a saved notification to connected clients. Delivery is
// best effort.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}
