// Package community provides the social feed: posts, comments, likes, and
// follows.
package community

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atas-platform/atas/domain"
)

// MaxBodyLength bounds post and comment bodies, in runes.
const MaxBodyLength = 5000

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", fmt.Errorf("%w: body exceeds %d characters", domain.ErrValidation, MaxBodyLength)
	}
	return body, nil
}

// Post is a feed entry.
type Post struct {
	id        int64
	authorID  int64
	body      string
	likes     int64
	comments  int64
	createdAt time.Time
}

// NewPost validates and creates a Post.
func NewPost(authorID int64, body string) (Post, error) {
	body, err := validateBody(body)
	if err != nil {
		return Post{}, err
	}
	return Post{authorID: authorID, body: body, createdAt: time.Now().UTC()}, nil
}

// RestorePost reconstructs a stored Post with its counters.
func RestorePost(id, authorID int64, body string, likes, comments int64, createdAt time.Time) Post {
	return Post{id: id, authorID: authorID, body: body, likes: likes, comments: comments, createdAt: createdAt}
}

// ID returns the post id.
func (p Post) ID() int64 { return p.id }

// AuthorID returns the author.
func (p Post) AuthorID() int64 { return p.authorID }

// Body returns the text.
func (p Post) Body() string { return p.body }

// Likes returns the like count.
func (p Post) Likes() int64 { return p.likes }

// Comments returns the comment count.
func (p Post) Comments() int64 { return p.comments }

// CreatedAt returns the posting time.
func (p Post) CreatedAt() time.Time { return p.createdAt }

// Comment is a reply to a post.
type Comment struct {
	id        int64
	postID    int64
	authorID  int64
	body      string
	createdAt time.Time
}

// NewComment validates and creates a Comment.
func NewComment(postID, authorID int64, body string) (Comment, error) {
	body, err := validateBody(body)
	if err != nil {
		return Comment{}, err
	}
	return Comment{postID: postID, authorID: authorID, body: body, createdAt: time.Now().UTC()}, nil
}

// RestoreComment reconstructs a stored Comment.
func RestoreComment(id, postID, authorID int64, body string, createdAt time.Time) Comment {
	return Comment{id: id, postID: postID, authorID: authorID, body: body, createdAt: createdAt}
}

// ID returns the comment id.
func (c Comment) ID() int64 { return c.id }

// PostID returns the parent post.
func (c Comment) PostID() int64 { return c.postID }

// AuthorID returns the author.
func (c Comment) AuthorID() int64 { return c.authorID }

// Body returns the text.
func (c Comment) Body() string { return c.body }

// CreatedAt returns the posting time.
func (c Comment) CreatedAt() time.Time { return c.createdAt }

// Store persists the feed.
type Store interface {
	GetPost(ctx context.Context, id int64) (Post, error)
	SavePost(ctx context.Context, p Post) (Post, error)
	DeletePost(ctx context.Context, id int64) error
	// Feed returns posts by the given authors, newest first.
	Feed(ctx context.Context, authorIDs []int64, limit, offset int) ([]Post, error)

	SaveComment(ctx context.Context, c Comment) (Comment, error)
	Comments(ctx context.Context, postID int64) ([]Comment, error)

	// Like records a like; it reports false when the user already liked it.
	Like(ctx context.Context, postID, userID int64) (bool, error)
	Unlike(ctx context.Context, postID, userID int64) error

	// Follow records a follow; it reports false when it already existed.
	Follow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	Following(ctx context.Context, followerID int64) ([]int64, error)
}
