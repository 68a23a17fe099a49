package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/community"
	"github.com/atas-platform/atas/internal/database"
)

const postColumns = `posts.id, posts.author_id, posts.body, posts.created_at,
(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count,
(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count`

type postRow struct {
	ID           int64     `gorm:"column:id"`
	AuthorID     int64     `gorm:"column:author_id"`
	Body         string    `gorm:"column:body"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	LikeCount    int64     `gorm:"column:like_count"`
	CommentCount int64     `gorm:"column:comment_count"`
}

func (r postRow) toDomain() community.Post {
	return community.RestorePost(r.ID, r.AuthorID, r.Body, r.LikeCount, r.CommentCount, r.CreatedAt)
}

// CommunityStore implements community.Store using GORM.
type CommunityStore struct {
	db       database.Database
	comments CommentMapper
}

// NewCommunityStore creates a new CommunityStore.
func NewCommunityStore(db database.Database) CommunityStore {
	return CommunityStore{db: db}
}

// GetPost retrieves a post with its counters.
func (s CommunityStore) GetPost(ctx context.Context, id int64) (community.Post, error) {
	var rows []postRow
	err := s.db.Session(ctx).Table("posts").Select(postColumns).Where("posts.id = ?", id).Limit(1).Scan(&rows).Error
	if err != nil {
		return community.Post{}, fmt.Errorf("get post: %w", err)
	}
	if len(rows) == 0 {
		return community.Post{}, fmt.Errorf("%w: post %d", domain.ErrNotFound, id)
	}
	return rows[0].toDomain(), nil
}

// SavePost creates or updates a post.
func (s CommunityStore) SavePost(ctx context.Context, p community.Post) (community.Post, error) {
	model := PostModel{ID: p.ID(), AuthorID: p.AuthorID(), Body: p.Body(), CreatedAt: p.CreatedAt()}
	if err := s.db.Session(ctx).Save(&model).Error; err != nil {
		return community.Post{}, fmt.Errorf("save post: %w", err)
	}
	return community.RestorePost(model.ID, model.AuthorID, model.Body, p.Likes(), p.Comments(), model.CreatedAt), nil
}

// DeletePost removes a post with its likes and comments.
func (s CommunityStore) DeletePost(ctx context.Context, id int64) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&LikeModel{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&CommentModel{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&PostModel{})
		if result.Error != nil {
			return fmt.Errorf("delete post: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: post %d", domain.ErrNotFound, id)
		}
		return nil
	})
}

// Feed returns posts by authorIDs, newest first.
func (s CommunityStore) Feed(ctx context.Context, authorIDs []int64, limit, offset int) ([]community.Post, error) {
	if len(authorIDs) == 0 {
		return []community.Post{}, nil
	}
	db := s.db.Session(ctx).Table("posts").Select(postColumns).
		Where("posts.author_id IN ?", authorIDs).
		Order("posts.created_at DESC, posts.id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	var rows []postRow
	if err := db.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	posts := make([]community.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.toDomain()
	}
	return posts, nil
}

// SaveComment creates a comment.
func (s CommunityStore) SaveComment(ctx context.Context, c community.Comment) (community.Comment, error) {
	model := s.comments.ToModel(c)
	if err := s.db.Session(ctx).Save(&model).Error; err != nil {
		return community.Comment{}, fmt.Errorf("save comment: %w", err)
	}
	return s.comments.ToDomain(model), nil
}

// Comments lists a post's comments, oldest first.
func (s CommunityStore) Comments(ctx context.Context, postID int64) ([]community.Comment, error) {
	var models []CommentModel
	if err := s.db.Session(ctx).Where("post_id = ?", postID).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]community.Comment, len(models))
	for i, m := range models {
		out[i] = s.comments.ToDomain(m)
	}
	return out, nil
}

// Like records a like, reporting false when it already existed.
func (s CommunityStore) Like(ctx context.Context, postID, userID int64) (bool, error) {
	model := LikeModel{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
	return s.insertOnce(ctx, &model, "like")
}

// Unlike removes a like. Removing a missing like is not an error.
func (s CommunityStore) Unlike(ctx context.Context, postID, userID int64) error {
	err := s.db.Session(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&LikeModel{}).Error
	if err != nil {
		return fmt.Errorf("unlike: %w", err)
	}
	return nil
}

// Follow records a follow, reporting false when it already existed.
func (s CommunityStore) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	model := FollowModel{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now().UTC()}
	return s.insertOnce(ctx, &model, "follow")
}

// Unfollow removes a follow. Removing a missing follow is not an error.
func (s CommunityStore) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	err := s.db.Session(ctx).Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&FollowModel{}).Error
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// Following lists the users a follower follows.
func (s CommunityStore) Following(ctx context.Context, followerID int64) ([]int64, error) {
	var ids []int64
	err := s.db.Session(ctx).Model(&FollowModel{}).Where("follower_id = ?", followerID).
		Order("followee_id ASC").Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return ids, nil
}

func (s CommunityStore) insertOnce(ctx context.Context, model any, label string) (bool, error) {
	result := s.db.Session(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("save %s: %w", label, result.Error)
	}
	return result.RowsAffected > 0, nil
}
