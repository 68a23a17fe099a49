package persistence

import (
	"context"
	"fmt"

	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/database"
)

// EventStore implements event.Store using GORM.
type EventStore struct {
	database.Repository[event.Event, EventModel]
}

// NewEventStore creates a new EventStore.
func NewEventStore(db database.Database) EventStore {
	return EventStore{
		Repository: database.NewRepository[event.Event, EventModel](db, EventMapper{}, "event"),
	}
}

// Get retrieves an event by id.
func (s EventStore) Get(ctx context.Context, id int64) (event.Event, error) {
	e, err := s.FindOne(ctx, repository.WithID(id))
	return e, translate(err)
}

// Find lists events matching options, soonest first unless ordered otherwise.
func (s EventStore) Find(ctx context.Context, options ...repository.Option) ([]event.Event, error) {
	if len(repository.Build(options...).Orders()) == 0 {
		options = append(options, repository.WithOrderAsc("events.starts_at"), repository.WithOrderAsc("events.id"))
	}
	return s.Repository.Find(ctx, options...)
}

// FindByIDs loads events in the order of ids, skipping missing ones.
func (s EventStore) FindByIDs(ctx context.Context, ids []int64) ([]event.Event, error) {
	if len(ids) == 0 {
		return []event.Event{}, nil
	}
	found, err := s.Repository.Find(ctx, repository.WithIDIn(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]event.Event, len(found))
	for _, e := range found {
		byID[e.ID()] = e
	}
	out := make([]event.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// IDs returns every event id in ascending order.
func (s EventStore) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.DB(ctx).Model(&EventModel{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list event ids: %w", err)
	}
	return ids, nil
}

// Save creates or updates an event.
func (s EventStore) Save(ctx context.Context, e event.Event) (event.Event, error) {
	saved, err := s.Repository.Save(ctx, e)
	return saved, translate(err)
}

// Delete removes an event.
func (s EventStore) Delete(ctx context.Context, id int64) error {
	return translate(s.DeleteBy(ctx, repository.WithID(id)))
}

// BookingStore implements event.BookingStore using GORM.
type BookingStore struct {
	database.Repository[event.Booking, BookingModel]
}

// NewBookingStore creates a new BookingStore.
func NewBookingStore(db database.Database) BookingStore {
	return BookingStore{
		Repository: database.NewRepository[event.Booking, BookingModel](db, BookingMapper{}, "booking"),
	}
}

// Find returns the booking a user holds for an event.
func (s BookingStore) Find(ctx context.Context, eventID, userID int64) (event.Booking, error) {
	b, err := s.FindOne(ctx, repository.WithCondition("event_id", eventID), repository.WithUserID(userID))
	return b, translate(err)
}

// ForUser lists a user's bookings, newest first.
func (s BookingStore) ForUser(ctx context.Context, userID int64) ([]event.Booking, error) {
	return s.Repository.Find(ctx, repository.WithUserID(userID), repository.WithOrderDesc("created_at"), repository.WithOrderDesc("id"))
}

// ForEvent lists an event's bookings, oldest first.
func (s BookingStore) ForEvent(ctx context.Context, eventID int64) ([]event.Booking, error) {
	return s.Repository.Find(ctx, repository.WithCondition("event_id", eventID), repository.WithOrderAsc("created_at"), repository.WithOrderAsc("id"))
}

// CountConfirmed counts confirmed bookings for an event.
func (s BookingStore) CountConfirmed(ctx context.Context, eventID int64) (int64, error) {
	return s.Count(ctx,
		repository.WithCondition("event_id", eventID),
		repository.WithCondition("status", string(event.BookingConfirmed)))
}

// Save creates or updates a booking. A second booking for the same
// event and user is a conflict.
func (s BookingStore) Save(ctx context.Context, b event.Booking) (event.Booking, error) {
	saved, err := s.Repository.Save(ctx, b)
	return saved, translate(err)
}

// DeleteForEvent removes every booking of an event.
func (s BookingStore) DeleteForEvent(ctx context.Context, eventID int64) error {
	return s.DeleteBy(ctx, repository.WithCondition("event_id", eventID))
}
