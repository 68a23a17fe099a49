package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/task"
)

// Profiles reads and edits expert profiles.
type Profiles struct {
	users    account.UserStore
	profiles account.ProfileStore
	queue    *Queue
	logger   *slog.Logger
}

// NewProfiles creates a Profiles service.
func NewProfiles(users account.UserStore, profiles account.ProfileStore, queue *Queue, logger *slog.Logger) *Profiles {
	return &Profiles{users: users, profiles: profiles, queue: queue, logger: logger}
}

// Get returns a user's profile. Private profiles are visible to their
// owner and to admins only.
func (s *Profiles) Get(ctx context.Context, viewer Actor, userID int64) (account.ExpertView, error) {
	views, err := s.profiles.View(ctx, []int64{userID})
	if err != nil {
		return account.ExpertView{}, err
	}
	if len(views) == 0 {
		return account.ExpertView{}, fmt.Errorf("%w: profile %d", domain.ErrNotFound, userID)
	}
	v := views[0]
	if v.Profile.Visibility() == account.VisibilityPrivate && viewer.UserID != userID && !viewer.IsAdmin() {
		return account.ExpertView{}, fmt.Errorf("%w: profile %d", domain.ErrNotFound, userID)
	}
	return v, nil
}

// Update applies changes to the actor's own profile. When the searchable
// text changed, an embedding job carrying the new text is queued; the
// write itself never waits on the provider.
func (s *Profiles) Update(ctx context.Context, actor Actor, update account.ProfileUpdate) (account.ExpertView, error) {
	u, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return account.ExpertView{}, err
	}
	current, err := s.profiles.Get(ctx, actor.UserID)
	if err != nil {
		return account.ExpertView{}, err
	}

	next, changed := current.Apply(update)
	saved, err := s.profiles.Save(ctx, next)
	if err != nil {
		return account.ExpertView{}, fmt.Errorf("save profile: %w", err)
	}

	if changed {
		text := account.EmbeddingText(saved, u.FullName())
		if err := s.queue.EnqueueEmbedding(ctx, task.OperationEmbedProfile, u.ID(), text); err != nil {
			// The profile is saved; a missed job only delays search freshness.
			s.logger.Warn("queue profile embedding failed", slog.Int64("user_id", u.ID()), slog.String("error", err.Error()))
		}
	}
	return account.ExpertView{User: u, Profile: saved}, nil
}
