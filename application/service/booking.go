package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/notification"
)

// Bookings reserves seats on published events.
type Bookings struct {
	events        event.Store
	bookings      event.BookingStore
	notifications *Notifications
	logger        *slog.Logger
}

// NewBookings creates a Bookings service.
func NewBookings(events event.Store, bookings event.BookingStore, notifications *Notifications, logger *slog.Logger) *Bookings {
	return &Bookings{events: events, bookings: bookings, notifications: notifications, logger: logger}
}

// Book reserves a seat for the actor. A previously cancelled booking is
// confirmed again; an active one is a conflict.
func (s *Bookings) Book(ctx context.Context, actor Actor, eventID int64) (event.Booking, error) {
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return event.Booking{}, err
	}
	if e.Status() != event.StatusPublished {
		return event.Booking{}, fmt.Errorf("%w: event %d is not open for booking", domain.ErrConflict, eventID)
	}

	existing, err := s.bookings.Find(ctx, eventID, actor.UserID)
	rebook := err == nil
	switch {
	case err == nil && existing.Status() == event.BookingConfirmed:
		return event.Booking{}, fmt.Errorf("%w: already booked", domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return event.Booking{}, err
	}

	if e.Capacity() > 0 {
		taken, err := s.bookings.CountConfirmed(ctx, eventID)
		if err != nil {
			return event.Booking{}, err
		}
		if taken >= int64(e.Capacity()) {
			return event.Booking{}, fmt.Errorf("%w: event %d is full", domain.ErrConflict, eventID)
		}
	}

	b := event.NewBooking(eventID, actor.UserID)
	if rebook {
		b = existing.Confirm()
	}
	b, err = s.bookings.Save(ctx, b)
	if err != nil {
		return event.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	s.notifications.Notify(ctx, actor.UserID, notification.KindBookingConfirmed, fmt.Sprintf("You are booked on %q", e.Title()))
	return b, nil
}

// Cancel releases the actor's seat.
func (s *Bookings) Cancel(ctx context.Context, actor Actor, eventID int64) (event.Booking, error) {
	b, err := s.bookings.Find(ctx, eventID, actor.UserID)
	if err != nil {
		return event.Booking{}, err
	}
	if b.Status() == event.BookingCancelled {
		return b, nil
	}
	b, err = s.bookings.Save(ctx, b.Cancel())
	if err != nil {
		return event.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	s.notifications.Notify(ctx, actor.UserID, notification.KindBookingCancelled, fmt.Sprintf("Your booking for event %d was cancelled", eventID))
	return b, nil
}

// Mine lists the actor's bookings, newest first.
func (s *Bookings) Mine(ctx context.Context, actor Actor) ([]event.Booking, error) {
	return s.bookings.ForUser(ctx, actor.UserID)
}
