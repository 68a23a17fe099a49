package persistence

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a []string as JSON text.
type StringList []string

// Scan implements sql.Scanner.
func (s *StringList) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*s = nil
		return err
	}
	return json.Unmarshal(data, s)
}

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(s))
	return string(raw), err
}

// JSONMap stores a map[string]any as JSON text. Numbers decode as
// json.Number so ids survive the round trip exactly.
type JSONMap map[string]any

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*m = nil
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]any(m))
	return string(raw), err
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into JSON column", value)
	}
}

// UserModel is the users table.
type UserModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	FullName     string    `gorm:"column:full_name;size:255;not null"`
	Role         string    `gorm:"column:role;size:32;not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (UserModel) TableName() string { return "users" }

// ProfileModel is the profiles table, one row per user.
type ProfileModel struct {
	UserID       int64      `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Title        string     `gorm:"column:title;size:255"`
	Bio          string     `gorm:"column:bio;type:text"`
	Skills       StringList `gorm:"column:skills;type:text"`
	Tags         StringList `gorm:"column:tags;type:text"`
	Availability string     `gorm:"column:availability;size:255"`
	Visibility   string     `gorm:"column:visibility;size:16;not null;index"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (ProfileModel) TableName() string { return "profiles" }

// OrganizationModel is the organizations table.
type OrganizationModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;size:255;not null;uniqueIndex"`
	Description string    `gorm:"column:description;type:text"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (OrganizationModel) TableName() string { return "organizations" }

// MembershipModel is the organization_members table.
type MembershipModel struct {
	OrganizationID int64     `gorm:"column:organization_id;primaryKey;autoIncrement:false"`
	UserID         int64     `gorm:"column:user_id;primaryKey;autoIncrement:false;index"`
	Role           string    `gorm:"column:role;size:16;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (MembershipModel) TableName() string { return "organization_members" }

// EventModel is the events table.
type EventModel struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	OrganizerID    int64      `gorm:"column:organizer_id;not null;index"`
	OrganizationID *int64     `gorm:"column:organization_id;index"`
	Title          string     `gorm:"column:title;size:255;not null"`
	Description    string     `gorm:"column:description;type:text"`
	Format         string     `gorm:"column:format;size:16;not null;index"`
	Location       string     `gorm:"column:location;size:255"`
	StartsAt       time.Time  `gorm:"column:starts_at;not null;index"`
	EndsAt         *time.Time `gorm:"column:ends_at"`
	Capacity       int        `gorm:"column:capacity;not null;default:0"`
	Status         string     `gorm:"column:status;size:16;not null;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (EventModel) TableName() string { return "events" }

// BookingModel is the bookings table.
type BookingModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID   int64     `gorm:"column:event_id;not null;uniqueIndex:idx_booking_event_user"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_booking_event_user;index"`
	Status    string    `gorm:"column:status;size:16;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (BookingModel) TableName() string { return "bookings" }

// NotificationModel is the notifications table.
type NotificationModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	Kind      string    `gorm:"column:kind;size:32;not null"`
	Message   string    `gorm:"column:message;type:text"`
	Read      bool      `gorm:"column:read;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName returns the table name.
func (NotificationModel) TableName() string { return "notifications" }

// PostModel is the posts table.
type PostModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AuthorID  int64     `gorm:"column:author_id;not null;index"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName returns the table name.
func (PostModel) TableName() string { return "posts" }

// CommentModel is the comments table.
type CommentModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PostID    int64     `gorm:"column:post_id;not null;index"`
	AuthorID  int64     `gorm:"column:author_id;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (CommentModel) TableName() string { return "comments" }

// LikeModel is the likes table.
type LikeModel struct {
	PostID    int64     `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	UserID    int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (LikeModel) TableName() string { return "likes" }

// FollowModel is the follows table.
type FollowModel struct {
	FollowerID int64     `gorm:"column:follower_id;primaryKey;autoIncrement:false"`
	FolloweeID int64     `gorm:"column:followee_id;primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (FollowModel) TableName() string { return "follows" }

// TaskModel is the tasks table backing the work queue.
type TaskModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string    `gorm:"column:dedup_key;size:255;not null;uniqueIndex"`
	Type      string    `gorm:"column:type;size:255;not null;index"`
	Payload   JSONMap   `gorm:"column:payload;type:text"`
	Priority  int       `gorm:"column:priority;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (TaskModel) TableName() string { return "tasks" }
