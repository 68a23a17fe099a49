package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/organization"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/domain/task"
)

// EventListParams filters event listings.
type EventListParams struct {
	Format      event.Format
	OrganizerID int64
	Limit       int
	Offset      int
}

// Events manages the event lifecycle.
type Events struct {
	events        event.Store
	bookings      event.BookingStore
	organizations organization.Store
	vectors       embedding.Store
	queue         *Queue
	notifications *Notifications
	logger        *slog.Logger
}

// NewEvents creates an Events service.
func NewEvents(
	events event.Store,
	bookings event.BookingStore,
	organizations organization.Store,
	vectors embedding.Store,
	queue *Queue,
	notifications *Notifications,
	logger *slog.Logger,
) *Events {
	return &Events{
		events:        events,
		bookings:      bookings,
		organizations: organizations,
		vectors:       vectors,
		queue:         queue,
		notifications: notifications,
		logger:        logger,
	}
}

// Create adds a draft event hosted by the actor and queues its embedding.
func (s *Events) Create(ctx context.Context, actor Actor, details event.Details) (event.Event, error) {
	if !actor.Role.CanOrganize() {
		return event.Event{}, fmt.Errorf("%w: only organizers can create events", domain.ErrForbidden)
	}
	if err := s.checkOrganization(ctx, actor, details.OrganizationID); err != nil {
		return event.Event{}, err
	}

	e, err := event.NewEvent(actor.UserID, details)
	if err != nil {
		return event.Event{}, err
	}
	e, err = s.events.Save(ctx, e)
	if err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}

	s.enqueue(ctx, e)
	s.logger.Info("event created", slog.Int64("event_id", e.ID()), slog.Int64("organizer_id", actor.UserID))
	return e, nil
}

// Update edits an event. Only its organizer or an admin may do so.
func (s *Events) Update(ctx context.Context, actor Actor, id int64, details event.Details) (event.Event, error) {
	e, err := s.owned(ctx, actor, id)
	if err != nil {
		return event.Event{}, err
	}
	if details.OrganizationID != e.OrganizationID() {
		if err := s.checkOrganization(ctx, actor, details.OrganizationID); err != nil {
			return event.Event{}, err
		}
	}

	next, changed, err := e.Update(details)
	if err != nil {
		return event.Event{}, err
	}
	next, err = s.events.Save(ctx, next)
	if err != nil {
		return event.Event{}, fmt.Errorf("save event: %w", err)
	}
	if changed {
		s.enqueue(ctx, next)
	}
	return next, nil
}

// Publish makes a draft event visible and bookable.
func (s *Events) Publish(ctx context.Context, actor Actor, id int64) (event.Event, error) {
	e, err := s.owned(ctx, actor, id)
	if err != nil {
		return event.Event{}, err
	}
	e, err = e.Publish()
	if err != nil {
		return event.Event{}, err
	}
	return s.events.Save(ctx, e)
}

// Cancel marks an event cancelled and tells everyone booked on it.
func (s *Events) Cancel(ctx context.Context, actor Actor, id int64) (event.Event, error) {
	e, err := s.owned(ctx, actor, id)
	if err != nil {
		return event.Event{}, err
	}
	if e.Status() == event.StatusCancelled {
		return e, nil
	}
	e, err = s.events.Save(ctx, e.Cancel())
	if err != nil {
		return event.Event{}, err
	}

	s.notifyAttendees(ctx, e, notification.KindEventCancelled, fmt.Sprintf("%q has been cancelled", e.Title()))
	return e, nil
}

// Delete removes an event with its bookings, embedding row and any pending
// embedding job.
func (s *Events) Delete(ctx context.Context, actor Actor, id int64) error {
	e, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if _, err := s.queue.DrainForEntity(ctx, task.OperationEmbedEvent, id); err != nil {
		return err
	}
	if err := s.vectors.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event embedding: %w", err)
	}
	if e.Status() == event.StatusPublished {
		s.notifyAttendees(ctx, e, notification.KindEventCancelled, fmt.Sprintf("%q has been removed", e.Title()))
	}
	if err := s.bookings.DeleteForEvent(ctx, id); err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.logger.Info("event deleted", slog.Int64("event_id", id))
	return nil
}

// Get returns an event. Drafts are visible to their organizer and admins only.
func (s *Events) Get(ctx context.Context, viewer Actor, id int64) (event.Event, error) {
	e, err := s.events.Get(ctx, id)
	if err != nil {
		return event.Event{}, err
	}
	if e.Status() == event.StatusDraft && e.OrganizerID() != viewer.UserID && !viewer.IsAdmin() {
		return event.Event{}, fmt.Errorf("%w: event %d", domain.ErrNotFound, id)
	}
	return e, nil
}

// List returns published events, soonest first.
func (s *Events) List(ctx context.Context, params EventListParams) ([]event.Event, error) {
	options := []repository.Option{event.WithStatus(event.StatusPublished)}
	if params.Format != "" {
		options = append(options, event.WithFormat(params.Format))
	}
	if params.OrganizerID > 0 {
		options = append(options, event.WithOrganizer(params.OrganizerID))
	}
	if params.Limit > 0 {
		options = append(options, repository.WithPagination(params.Limit, params.Offset)...)
	}
	return s.events.Find(ctx, options...)
}

func (s *Events) owned(ctx context.Context, actor Actor, id int64) (event.Event, error) {
	e, err := s.events.Get(ctx, id)
	if err != nil {
		return event.Event{}, err
	}
	if e.OrganizerID() != actor.UserID && !actor.IsAdmin() {
		return event.Event{}, fmt.Errorf("%w: not the organizer of event %d", domain.ErrForbidden, id)
	}
	return e, nil
}

// checkOrganization requires the actor to belong to orgID when one is given.
func (s *Events) checkOrganization(ctx context.Context, actor Actor, orgID int64) error {
	if orgID == 0 || actor.IsAdmin() {
		return nil
	}
	_, err := s.organizations.Membership(ctx, orgID, actor.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: not a member of organization %d", domain.ErrForbidden, orgID)
	}
	return err
}

func (s *Events) enqueue(ctx context.Context, e event.Event) {
	if err := s.queue.EnqueueEmbedding(ctx, task.OperationEmbedEvent, e.ID(), event.EmbeddingText(e)); err != nil {
		s.logger.Warn("queue event embedding failed", slog.Int64("event_id", e.ID()), slog.String("error", err.Error()))
	}
}

func (s *Events) notifyAttendees(ctx context.Context, e event.Event, kind notification.Kind, message string) {
	bookings, err := s.bookings.ForEvent(ctx, e.ID())
	if err != nil {
		s.logger.Warn("list bookings for notification failed", slog.Int64("event_id", e.ID()), slog.String("error", err.Error()))
		return
	}
	for _, b := range bookings {
		if b.Status() == event.BookingConfirmed {
			s.notifications.Notify(ctx, b.UserID(), kind, message)
		}
	}
}
