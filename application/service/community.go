package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/community"
	"github.com/atas-platform/atas/domain/notification"
)

// DefaultFeedLimit is the page size of the feed.
const DefaultFeedLimit = 20

// Community runs the social feed.
type Community struct {
	store         community.Store
	notifications *Notifications
	logger        *slog.Logger
}

// NewCommunity creates a Community service.
func NewCommunity(store community.Store, notifications *Notifications, logger *slog.Logger) *Community {
	return &Community{store: store, notifications: notifications, logger: logger}
}

// CreatePost publishes a post by the actor.
func (s *Community) CreatePost(ctx context.Context, actor Actor, body string) (community.Post, error) {
	p, err := community.NewPost(actor.UserID, body)
	if err != nil {
		return community.Post{}, err
	}
	return s.store.SavePost(ctx, p)
}

// GetPost returns a post with its counters.
func (s *Community) GetPost(ctx context.Context, id int64) (community.Post, error) {
	return s.store.GetPost(ctx, id)
}

// DeletePost removes a post. Only its author or an admin may do so.
func (s *Community) DeletePost(ctx context.Context, actor Actor, id int64) error {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID() != actor.UserID && !actor.IsAdmin() {
		return fmt.Errorf("%w: not the author of post %d", domain.ErrForbidden, id)
	}
	return s.store.DeletePost(ctx, id)
}

// Comment adds a comment and notifies the post's author.
func (s *Community) Comment(ctx context.Context, actor Actor, postID int64, body string) (community.Comment, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return community.Comment{}, err
	}
	c, err := community.NewComment(postID, actor.UserID, body)
	if err != nil {
		return community.Comment{}, err
	}
	c, err = s.store.SaveComment(ctx, c)
	if err != nil {
		return community.Comment{}, err
	}
	if p.AuthorID() != actor.UserID {
		s.notifications.Notify(ctx, p.AuthorID(), notification.KindPostCommented, fmt.Sprintf("user %d commented on your post", actor.UserID))
	}
	return c, nil
}

// Comments lists a post's comments, oldest first.
func (s *Community) Comments(ctx context.Context, postID int64) ([]community.Comment, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.Comments(ctx, postID)
}

// Like records the actor's like. Liking twice is a no-op and does not
// notify again.
func (s *Community) Like(ctx context.Context, actor Actor, postID int64) error {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	created, err := s.store.Like(ctx, postID, actor.UserID)
	if err != nil {
		return err
	}
	if created && p.AuthorID() != actor.UserID {
		s.notifications.Notify(ctx, p.AuthorID(), notification.KindPostLiked, fmt.Sprintf("user %d liked your post", actor.UserID))
	}
	return nil
}

// Unlike removes the actor's like.
func (s *Community) Unlike(ctx context.Context, actor Actor, postID int64) error {
	return s.store.Unlike(ctx, postID, actor.UserID)
}

// Follow makes the actor follow userID.
func (s *Community) Follow(ctx context.Context, actor Actor, userID int64) error {
	if userID == actor.UserID {
		return fmt.Errorf("%w: cannot follow yourself", domain.ErrValidation)
	}
	created, err := s.store.Follow(ctx, actor.UserID, userID)
	if err != nil {
		return err
	}
	if created {
		s.notifications.Notify(ctx, userID, notification.KindNewFollower, fmt.Sprintf("user %d followed you", actor.UserID))
	}
	return nil
}

// Unfollow stops the actor following userID.
func (s *Community) Unfollow(ctx context.Context, actor Actor, userID int64) error {
	return s.store.Unfollow(ctx, actor.UserID, userID)
}

// Feed returns posts by the actor and everyone they follow, newest first.
func (s *Community) Feed(ctx context.Context, actor Actor, limit, offset int) ([]community.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultFeedLimit
	}
	if offset < 0 {
		offset = 0
	}
	authors, err := s.store.Following(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.store.Feed(ctx, append(authors, actor.UserID), limit, offset)
}
