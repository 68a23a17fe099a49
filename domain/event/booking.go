package event

import (
	"context"
	"time"
)

// BookingStatus is the state of a seat reservation.
type BookingStatus string

// BookingStatus values.
const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking reserves a seat at an event for a user.
type Booking struct {
	id        int64
	eventID   int64
	userID    int64
	status    BookingStatus
	createdAt time.Time
}

// NewBooking creates a confirmed booking.
func NewBooking(eventID, userID int64) Booking {
	return Booking{eventID: eventID, userID: userID, status: BookingConfirmed, createdAt: time.Now().UTC()}
}

// RestoreBooking reconstructs a stored Booking.
func RestoreBooking(id, eventID, userID int64, status BookingStatus, createdAt time.Time) Booking {
	return Booking{id: id, eventID: eventID, userID: userID, status: status, createdAt: createdAt}
}

// Cancel marks the booking cancelled.
func (b Booking) Cancel() Booking {
	b.status = BookingCancelled
	return b
}

// Confirm re-activates a cancelled booking.
func (b Booking) Confirm() Booking {
	b.status = BookingConfirmed
	return b
}

// ID returns the booking id.
func (b Booking) ID() int64 { return b.id }

// EventID returns the booked event.
func (b Booking) EventID() int64 { return b.eventID }

// UserID returns the attendee.
func (b Booking) UserID() int64 { return b.userID }

// Status returns the booking state.
func (b Booking) Status() BookingStatus { return b.status }

// CreatedAt returns the booking time.
func (b Booking) CreatedAt() time.Time { return b.createdAt }

// BookingStore persists bookings.
type BookingStore interface {
	// Find returns the booking for (eventID, userID).
	Find(ctx context.Context, eventID, userID int64) (Booking, error)
	ForUser(ctx context.Context, userID int64) ([]Booking, error)
	ForEvent(ctx context.Context, eventID int64) ([]Booking, error)
	CountConfirmed(ctx context.Context, eventID int64) (int64, error)
	Save(ctx context.Context, b Booking) (Booking, error)
	DeleteForEvent(ctx context.Context, eventID int64) error
}
