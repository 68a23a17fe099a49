package indexing

import (
	"context"
	"fmt"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/event"
)

// ProfileText rebuilds profile text: full name, title, bio, skills, tags
// and availability.
type ProfileText struct {
	profiles account.ProfileStore
}

// NewProfileText creates a ProfileText source.
func NewProfileText(profiles account.ProfileStore) ProfileText {
	return ProfileText{profiles: profiles}
}

// EmbeddingText implements TextSource.
func (s ProfileText) EmbeddingText(ctx context.Context, userID int64) (string, error) {
	views, err := s.profiles.View(ctx, []int64{userID})
	if err != nil {
		return "", err
	}
	if len(views) == 0 {
		return "", fmt.Errorf("%w: profile %d", domain.ErrNotFound, userID)
	}
	return account.EmbeddingText(views[0].Profile, views[0].User.FullName()), nil
}

// EventText rebuilds event text: title, description, format and location.
type EventText struct {
	events event.Store
}

// NewEventText creates an EventText source.
func NewEventText(events event.Store) EventText {
	return EventText{events: events}
}

// EmbeddingText implements TextSource.
func (s EventText) EmbeddingText(ctx context.Context, eventID int64) (string, error) {
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return "", err
	}
	return event.EmbeddingText(e), nil
}
