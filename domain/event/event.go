// Package event provides events and the bookings made against them.
package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/repository"
)

// Format is how an event is attended.
type Format string

// Format values.
const (
	FormatOnline   Format = "online"
	FormatInPerson Format = "in_person"
	FormatHybrid   Format = "hybrid"
)

// ParseFormat validates a format string. Empty means online.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatOnline, nil
	case FormatOnline, FormatInPerson, FormatHybrid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrValidation, s)
	}
}

// Status is an event's lifecycle state.
type Status string

// Status values.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
)

// Event is a scheduled session hosted by an organizer.
type Event struct {
	id             int64
	organizerID    int64
	organizationID int64
	title          string
	description    string
	format         Format
	location       string
	startsAt       time.Time
	endsAt         time.Time
	capacity       int
	status         Status
	createdAt      time.Time
	updatedAt      time.Time
}

// Details are the user-editable fields of an event.
type Details struct {
	OrganizationID int64
	Title          string
	Description    string
	Format         Format
	Location       string
	StartsAt       time.Time
	EndsAt         time.Time
	Capacity       int
}

func (d Details) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if d.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", domain.ErrValidation)
	}
	if !d.EndsAt.IsZero() && d.EndsAt.Before(d.StartsAt) {
		return fmt.Errorf("%w: ends_at precedes starts_at", domain.ErrValidation)
	}
	if d.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", domain.ErrValidation)
	}
	return nil
}

// NewEvent validates details and creates a draft event.
func NewEvent(organizerID int64, d Details) (Event, error) {
	if err := d.validate(); err != nil {
		return Event{}, err
	}
	now := time.Now().UTC()
	e := Event{organizerID: organizerID, status: StatusDraft, createdAt: now}
	return e.withDetails(d, now), nil
}

// Restore reconstructs a stored Event.
func Restore(id, organizerID, organizationID int64, title, description string, format Format, location string,
	startsAt, endsAt time.Time, capacity int, status Status, createdAt, updatedAt time.Time,
) Event {
	return Event{
		id: id, organizerID: organizerID, organizationID: organizationID,
		title: title, description: description, format: format, location: location,
		startsAt: startsAt, endsAt: endsAt, capacity: capacity, status: status,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (e Event) withDetails(d Details, now time.Time) Event {
	e.organizationID = d.OrganizationID
	e.title = strings.TrimSpace(d.Title)
	e.description = strings.TrimSpace(d.Description)
	e.format = d.Format
	if e.format == "" {
		e.format = FormatOnline
	}
	e.location = strings.TrimSpace(d.Location)
	e.startsAt = d.StartsAt.UTC()
	e.endsAt = d.EndsAt.UTC()
	e.capacity = d.Capacity
	e.updatedAt = now
	return e
}

// Update returns the event with new details, and whether the embedding
// text changed.
func (e Event) Update(d Details) (Event, bool, error) {
	if err := d.validate(); err != nil {
		return e, false, err
	}
	next := e.withDetails(d, time.Now().UTC())
	return next, EmbeddingText(e) != EmbeddingText(next), nil
}

// Publish makes a draft visible. Cancelled events cannot be published.
func (e Event) Publish() (Event, error) {
	if e.status == StatusCancelled {
		return e, fmt.Errorf("%w: event is cancelled", domain.ErrConflict)
	}
	e.status = StatusPublished
	e.updatedAt = time.Now().UTC()
	return e, nil
}

// Cancel marks the event cancelled.
func (e Event) Cancel() Event {
	e.status = StatusCancelled
	e.updatedAt = time.Now().UTC()
	return e
}

// ID returns the event id.
func (e Event) ID() int64 { return e.id }

// OrganizerID returns the hosting user.
func (e Event) OrganizerID() int64 { return e.organizerID }

// OrganizationID returns the hosting organization, 0 when none.
func (e Event) OrganizationID() int64 { return e.organizationID }

// Title returns the title.
func (e Event) Title() string { return e.title }

// Description returns the description.
func (e Event) Description() string { return e.description }

// Format returns the attendance format.
func (e Event) Format() Format { return e.format }

// Location returns the venue or link.
func (e Event) Location() string { return e.location }

// StartsAt returns the start time.
func (e Event) StartsAt() time.Time { return e.startsAt }

// EndsAt returns the end time, zero when open-ended.
func (e Event) EndsAt() time.Time { return e.endsAt }

// Capacity returns the seat limit, 0 for unlimited.
func (e Event) Capacity() int { return e.capacity }

// Status returns the lifecycle state.
func (e Event) Status() Status { return e.status }

// CreatedAt returns the creation time.
func (e Event) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns the last modification time.
func (e Event) UpdatedAt() time.Time { return e.updatedAt }

// EmbeddingText builds the text embedded for an event.
func EmbeddingText(e Event) string {
	return embedding.JoinText(e.title, e.description, string(e.format), e.location)
}

// Store persists events.
type Store interface {
	Get(ctx context.Context, id int64) (Event, error)
	Find(ctx context.Context, options ...repository.Option) ([]Event, error)
	// FindByIDs returns events in the order of ids, skipping missing ones.
	FindByIDs(ctx context.Context, ids []int64) ([]Event, error)
	IDs(ctx context.Context) ([]int64, error)
	Save(ctx context.Context, e Event) (Event, error)
	Delete(ctx context.Context, id int64) error
}

// WithStatus filters events by status.
func WithStatus(s Status) repository.Option {
	return repository.WithCondition("events.status", string(s))
}

// WithFormat filters events by format.
func WithFormat(f Format) repository.Option {
	return repository.WithCondition("events.format", string(f))
}

// WithOrganizer filters events by organizer.
func WithOrganizer(userID int64) repository.Option {
	return repository.WithCondition("events.organizer_id", userID)
}

// WithText matches events whose title or description contains term.
func WithText(term string) repository.Option {
	return repository.WithContains(term, "events.title", "events.description")
}
