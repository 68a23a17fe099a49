package persistence

import (
	"context"
	"fmt"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/database"
)

// UserStore implements account.UserStore using GORM.
type UserStore struct {
	database.Repository[account.User, UserModel]
}

// NewUserStore creates a new UserStore.
func NewUserStore(db database.Database) UserStore {
	return UserStore{
		Repository: database.NewRepository[account.User, UserModel](db, UserMapper{}, "user"),
	}
}

// Get retrieves a user by id.
func (s UserStore) Get(ctx context.Context, id int64) (account.User, error) {
	u, err := s.FindOne(ctx, repository.WithID(id))
	return u, translate(err)
}

// FindByEmail retrieves a user by email, ignoring case.
func (s UserStore) FindByEmail(ctx context.Context, email string) (account.User, error) {
	u, err := s.FindOne(ctx, repository.WithCondition("email", account.NormalizeEmail(email)))
	return u, translate(err)
}

// Save creates or updates a user. A taken email is a conflict.
func (s UserStore) Save(ctx context.Context, u account.User) (account.User, error) {
	saved, err := s.Repository.Save(ctx, u)
	return saved, translate(err)
}

// ProfileStore implements account.ProfileStore using GORM.
type ProfileStore struct {
	database.Repository[account.Profile, ProfileModel]
	users UserMapper
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(db database.Database) ProfileStore {
	return ProfileStore{
		Repository: database.NewRepository[account.Profile, ProfileModel](db, ProfileMapper{}, "profile"),
	}
}

// Get retrieves the profile of a user.
func (s ProfileStore) Get(ctx context.Context, userID int64) (account.Profile, error) {
	p, err := s.FindOne(ctx, repository.WithUserID(userID))
	return p, translate(err)
}

// Save creates or replaces a profile.
func (s ProfileStore) Save(ctx context.Context, p account.Profile) (account.Profile, error) {
	saved, err := s.Repository.Save(ctx, p)
	return saved, translate(err)
}

// IDs returns every profile's user id in ascending order.
func (s ProfileStore) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.DB(ctx).Model(&ProfileModel{}).Order("user_id ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list profile ids: %w", err)
	}
	return ids, nil
}

// Search returns experts matching options over the joined users and
// profiles tables. Without an explicit order results are sorted by user id.
func (s ProfileStore) Search(ctx context.Context, options ...repository.Option) ([]account.ExpertView, error) {
	q := repository.Build(options...)
	db := s.DB(ctx).Model(&ProfileModel{}).Joins("JOIN users ON users.id = profiles.user_id")
	db = database.ApplyOptions(db, options...)
	if len(q.Orders()) == 0 {
		db = db.Order("profiles.user_id ASC")
	}

	var ids []int64
	if err := db.Pluck("profiles.user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return s.View(ctx, ids)
}

// View loads users with their profiles, in the order of ids. Ids without a
// user are skipped; a user without a profile row gets an empty profile.
func (s ProfileStore) View(ctx context.Context, ids []int64) ([]account.ExpertView, error) {
	if len(ids) == 0 {
		return []account.ExpertView{}, nil
	}

	var users []UserModel
	if err := s.DB(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var profiles []ProfileModel
	if err := s.DB(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	userByID := make(map[int64]UserModel, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	profileByID := make(map[int64]ProfileModel, len(profiles))
	for _, p := range profiles {
		profileByID[p.UserID] = p
	}

	views := make([]account.ExpertView, 0, len(ids))
	for _, id := range ids {
		u, ok := userByID[id]
		if !ok {
			continue
		}
		profile := account.NewProfile(id)
		if p, ok := profileByID[id]; ok {
			profile = s.Mapper().ToDomain(p)
		}
		views = append(views, account.ExpertView{User: s.users.ToDomain(u), Profile: profile})
	}
	return views, nil
}
