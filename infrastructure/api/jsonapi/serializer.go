package jsonapi

import (
	"strconv"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/community"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/organization"
	"github.com/atas-platform/atas/domain/task"
)

// Resource types.
const (
	TypeUser         = "user"
	TypeProfile      = "profile"
	TypeEvent        = "event"
	TypeBooking      = "booking"
	TypeOrganization = "organization"
	TypeMembership   = "membership"
	TypeNotification = "notification"
	TypePost         = "post"
	TypeComment      = "comment"
	TypeTask         = "task"
)

// UserAttributes represents user attributes in JSON:API format.
type UserAttributes struct {
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Role      string   `json:"role"`
	CreatedAt DateTime `json:"created_at"`
}

// ProfileAttributes represents a user joined with their profile.
type ProfileAttributes struct {
	FullName     string   `json:"full_name"`
	Role         string   `json:"role"`
	Title        string   `json:"title"`
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	Tags         []string `json:"tags"`
	Availability string   `json:"availability"`
	Visibility   string   `json:"visibility"`
	UpdatedAt    DateTime `json:"updated_at"`
}

// EventAttributes represents event attributes in JSON:API format.
type EventAttributes struct {
	OrganizerID    int64     `json:"organizer_id"`
	OrganizationID int64     `json:"organization_id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Format         string    `json:"format"`
	Location       string    `json:"location"`
	StartsAt       DateTime  `json:"starts_at"`
	EndsAt         *DateTime `json:"ends_at,omitempty"`
	Capacity       int       `json:"capacity"`
	Status         string    `json:"status"`
	CreatedAt      DateTime  `json:"created_at"`
	UpdatedAt      DateTime  `json:"updated_at"`
}

// BookingAttributes represents booking attributes in JSON:API format.
type BookingAttributes struct {
	EventID   int64    `json:"event_id"`
	UserID    int64    `json:"user_id"`
	Status    string   `json:"status"`
	CreatedAt DateTime `json:"created_at"`
}

// OrganizationAttributes represents organization attributes in JSON:API format.
type OrganizationAttributes struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	OwnerID     int64    `json:"owner_id"`
	CreatedAt   DateTime `json:"created_at"`
}

// MembershipAttributes represents a membership in JSON:API format.
type MembershipAttributes struct {
	OrganizationID int64    `json:"organization_id"`
	UserID         int64    `json:"user_id"`
	Role           string   `json:"role"`
	CreatedAt      DateTime `json:"created_at"`
}

// NotificationAttributes represents notification attributes in JSON:API format.
type NotificationAttributes struct {
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Read      bool     `json:"read"`
	CreatedAt DateTime `json:"created_at"`
}

// PostAttributes represents post attributes in JSON:API format.
type PostAttributes struct {
	AuthorID  int64    `json:"author_id"`
	Body      string   `json:"body"`
	Likes     int64    `json:"likes"`
	Comments  int64    `json:"comments"`
	CreatedAt DateTime `json:"created_at"`
}

// CommentAttributes represents comment attributes in JSON:API format.
type CommentAttributes struct {
	PostID    int64    `json:"post_id"`
	AuthorID  int64    `json:"author_id"`
	Body      string   `json:"body"`
	CreatedAt DateTime `json:"created_at"`
}

// TaskAttributes represents task attributes in JSON:API format.
type TaskAttributes struct {
	Type      string         `json:"type"`
	Priority  int            `json:"priority"`
	Payload   map[string]any `json:"payload"`
	CreatedAt DateTime       `json:"created_at"`
	UpdatedAt DateTime       `json:"updated_at"`
}

// Serializer converts domain objects to JSON:API resources.
type Serializer struct{}

// NewSerializer creates a new Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

// UserResource converts a user. The password hash never leaves the server.
func (s *Serializer) UserResource(u account.User) *Resource {
	return NewResource(TypeUser, id(u.ID()), UserAttributes{
		Email:     u.Email(),
		FullName:  u.FullName(),
		Role:      string(u.Role()),
		CreatedAt: NewDateTime(u.CreatedAt()),
	})
}

// ProfileResource converts an expert view.
func (s *Serializer) ProfileResource(v account.ExpertView) *Resource {
	return NewResource(TypeProfile, id(v.User.ID()), ProfileAttributes{
		FullName:     v.User.FullName(),
		Role:         string(v.User.Role()),
		Title:        v.Profile.Title(),
		Bio:          v.Profile.Bio(),
		Skills:       nonNil(v.Profile.Skills()),
		Tags:         nonNil(v.Profile.Tags()),
		Availability: v.Profile.Availability(),
		Visibility:   string(v.Profile.Visibility()),
		UpdatedAt:    NewDateTime(v.Profile.UpdatedAt()),
	})
}

// EventResource converts an event.
func (s *Serializer) EventResource(e event.Event) *Resource {
	attrs := EventAttributes{
		OrganizerID:    e.OrganizerID(),
		OrganizationID: e.OrganizationID(),
		Title:          e.Title(),
		Description:    e.Description(),
		Format:         string(e.Format()),
		Location:       e.Location(),
		StartsAt:       NewDateTime(e.StartsAt()),
		Capacity:       e.Capacity(),
		Status:         string(e.Status()),
		CreatedAt:      NewDateTime(e.CreatedAt()),
		UpdatedAt:      NewDateTime(e.UpdatedAt()),
	}
	if !e.EndsAt().IsZero() {
		attrs.EndsAt = NewDateTime(e.EndsAt()).Ptr()
	}
	r := NewResource(TypeEvent, id(e.ID()), attrs)
	r.Relationships = Relationships{"organizer": RelatedTo(TypeUser, id(e.OrganizerID()))}
	return r
}

// EventResources converts multiple events.
func (s *Serializer) EventResources(events []event.Event) []*Resource {
	return mapResources(events, s.EventResource)
}

// BookingResource converts a booking.
func (s *Serializer) BookingResource(b event.Booking) *Resource {
	return NewResource(TypeBooking, id(b.ID()), BookingAttributes{
		EventID:   b.EventID(),
		UserID:    b.UserID(),
		Status:    string(b.Status()),
		CreatedAt: NewDateTime(b.CreatedAt()),
	})
}

// BookingResources converts multiple bookings.
func (s *Serializer) BookingResources(bookings []event.Booking) []*Resource {
	return mapResources(bookings, s.BookingResource)
}

// OrganizationResource converts an organization.
func (s *Serializer) OrganizationResource(o organization.Organization) *Resource {
	return NewResource(TypeOrganization, id(o.ID()), OrganizationAttributes{
		Name:        o.Name(),
		Description: o.Description(),
		OwnerID:     o.OwnerID(),
		CreatedAt:   NewDateTime(o.CreatedAt()),
	})
}

// MembershipResource converts a membership. Its id is "<org>:<user>".
func (s *Serializer) MembershipResource(m organization.Membership) *Resource {
	return NewResource(TypeMembership, id(m.OrganizationID)+":"+id(m.UserID), MembershipAttributes{
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           string(m.Role),
		CreatedAt:      NewDateTime(m.CreatedAt),
	})
}

// MembershipResources converts multiple memberships.
func (s *Serializer) MembershipResources(members []organization.Membership) []*Resource {
	return mapResources(members, s.MembershipResource)
}

// NotificationResource converts a notification.
func (s *Serializer) NotificationResource(n notification.Notification) *Resource {
	return NewResource(TypeNotification, id(n.ID()), NotificationAttributes{
		Kind:      string(n.Kind()),
		Message:   n.Message(),
		Read:      n.Read(),
		CreatedAt: NewDateTime(n.CreatedAt()),
	})
}

// NotificationResources converts multiple notifications.
func (s *Serializer) NotificationResources(items []notification.Notification) []*Resource {
	return mapResources(items, s.NotificationResource)
}

// PostResource converts a post.
func (s *Serializer) PostResource(p community.Post) *Resource {
	r := NewResource(TypePost, id(p.ID()), PostAttributes{
		AuthorID:  p.AuthorID(),
		Body:      p.Body(),
		Likes:     p.Likes(),
		Comments:  p.Comments(),
		CreatedAt: NewDateTime(p.CreatedAt()),
	})
	r.Relationships = Relationships{"author": RelatedTo(TypeUser, id(p.AuthorID()))}
	return r
}

// PostResources converts multiple posts.
func (s *Serializer) PostResources(posts []community.Post) []*Resource {
	return mapResources(posts, s.PostResource)
}

// CommentResource converts a comment.
func (s *Serializer) CommentResource(c community.Comment) *Resource {
	return NewResource(TypeComment, id(c.ID()), CommentAttributes{
		PostID:    c.PostID(),
		AuthorID:  c.AuthorID(),
		Body:      c.Body(),
		CreatedAt: NewDateTime(c.CreatedAt()),
	})
}

// CommentResources converts multiple comments.
func (s *Serializer) CommentResources(comments []community.Comment) []*Resource {
	return mapResources(comments, s.CommentResource)
}

// TaskResource converts a queued task.
func (s *Serializer) TaskResource(t task.Task) *Resource {
	return NewResource(TypeTask, id(t.ID()), TaskAttributes{
		Type:      t.Operation().String(),
		Priority:  t.Priority(),
		Payload:   t.Payload(),
		CreatedAt: NewDateTime(t.CreatedAt()),
		UpdatedAt: NewDateTime(t.UpdatedAt()),
	})
}

// TaskResources converts multiple tasks.
func (s *Serializer) TaskResources(tasks []task.Task) []*Resource {
	return mapResources(tasks, s.TaskResource)
}

func mapResources[T any](items []T, fn func(T) *Resource) []*Resource {
	out := make([]*Resource, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
