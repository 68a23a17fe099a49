package persistence

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/community"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/organization"
	"github.com/atas-platform/atas/domain/task"
)

// UserMapper maps between account.User and UserModel.
type UserMapper struct{}

// ToDomain converts a UserModel to an account.User.
func (UserMapper) ToDomain(e UserModel) account.User {
	return account.RestoreUser(e.ID, e.Email, e.PasswordHash, e.FullName, account.Role(e.Role), e.CreatedAt)
}

// ToModel converts an account.User to a UserModel.
func (UserMapper) ToModel(u account.User) UserModel {
	return UserModel{
		ID:           u.ID(),
		Email:        u.Email(),
		PasswordHash: u.PasswordHash(),
		FullName:     u.FullName(),
		Role:         string(u.Role()),
		CreatedAt:    u.CreatedAt(),
	}
}

// ProfileMapper maps between account.Profile and ProfileModel.
type ProfileMapper struct{}

// ToDomain converts a ProfileModel to an account.Profile.
func (ProfileMapper) ToDomain(e ProfileModel) account.Profile {
	return account.RestoreProfile(e.UserID, e.Title, e.Bio, e.Skills, e.Tags, e.Availability,
		account.Visibility(e.Visibility), e.UpdatedAt)
}

// ToModel converts an account.Profile to a ProfileModel.
func (ProfileMapper) ToModel(p account.Profile) ProfileModel {
	return ProfileModel{
		UserID:       p.UserID(),
		Title:        p.Title(),
		Bio:          p.Bio(),
		Skills:       StringList(p.Skills()),
		Tags:         StringList(p.Tags()),
		Availability: p.Availability(),
		Visibility:   string(p.Visibility()),
		UpdatedAt:    p.UpdatedAt(),
	}
}

// OrganizationMapper maps between organization.Organization and OrganizationModel.
type OrganizationMapper struct{}

// ToDomain converts an OrganizationModel to an organization.Organization.
func (OrganizationMapper) ToDomain(e OrganizationModel) organization.Organization {
	return organization.Restore(e.ID, e.Name, e.Description, e.OwnerID, e.CreatedAt)
}

// ToModel converts an organization.Organization to an OrganizationModel.
func (OrganizationMapper) ToModel(o organization.Organization) OrganizationModel {
	return OrganizationModel{
		ID:          o.ID(),
		Name:        o.Name(),
		Description: o.Description(),
		OwnerID:     o.OwnerID(),
		CreatedAt:   o.CreatedAt(),
	}
}

// EventMapper maps between event.Event and EventModel.
type EventMapper struct{}

// ToDomain converts an EventModel to an event.Event.
func (EventMapper) ToDomain(e EventModel) event.Event {
	var orgID int64
	if e.OrganizationID != nil {
		orgID = *e.OrganizationID
	}
	var endsAt time.Time
	if e.EndsAt != nil {
		endsAt = *e.EndsAt
	}
	return event.Restore(e.ID, e.OrganizerID, orgID, e.Title, e.Description, event.Format(e.Format), e.Location,
		e.StartsAt, endsAt, e.Capacity, event.Status(e.Status), e.CreatedAt, e.UpdatedAt)
}

// ToModel converts an event.Event to an EventModel.
func (EventMapper) ToModel(ev event.Event) EventModel {
	m := EventModel{
		ID:          ev.ID(),
		OrganizerID: ev.OrganizerID(),
		Title:       ev.Title(),
		Description: ev.Description(),
		Format:      string(ev.Format()),
		Location:    ev.Location(),
		StartsAt:    ev.StartsAt(),
		Capacity:    ev.Capacity(),
		Status:      string(ev.Status()),
		CreatedAt:   ev.CreatedAt(),
		UpdatedAt:   ev.UpdatedAt(),
	}
	if id := ev.OrganizationID(); id != 0 {
		m.OrganizationID = &id
	}
	if end := ev.EndsAt(); !end.IsZero() {
		m.EndsAt = &end
	}
	return m
}

// BookingMapper maps between event.Booking and BookingModel.
type BookingMapper struct{}

// ToDomain converts a BookingModel to an event.Booking.
func (BookingMapper) ToDomain(e BookingModel) event.Booking {
	return event.RestoreBooking(e.ID, e.EventID, e.UserID, event.BookingStatus(e.Status), e.CreatedAt)
}

// ToModel converts an event.Booking to a BookingModel.
func (BookingMapper) ToModel(b event.Booking) BookingModel {
	return BookingModel{
		ID:        b.ID(),
		EventID:   b.EventID(),
		UserID:    b.UserID(),
		Status:    string(b.Status()),
		CreatedAt: b.CreatedAt(),
	}
}

// NotificationMapper maps between notification.Notification and NotificationModel.
type NotificationMapper struct{}

// ToDomain converts a NotificationModel to a notification.Notification.
func (NotificationMapper) ToDomain(e NotificationModel) notification.Notification {
	return notification.Restore(e.ID, e.UserID, notification.Kind(e.Kind), e.Message, e.Read, e.CreatedAt)
}

// ToModel converts a notification.Notification to a NotificationModel.
func (NotificationMapper) ToModel(n notification.Notification) NotificationModel {
	return NotificationModel{
		ID:        n.ID(),
		UserID:    n.UserID(),
		Kind:      string(n.Kind()),
		Message:   n.Message(),
		Read:      n.Read(),
		CreatedAt: n.CreatedAt(),
	}
}

// CommentMapper maps between community.Comment and CommentModel.
type CommentMapper struct{}

// ToDomain converts a CommentModel to a community.Comment.
func (CommentMapper) ToDomain(e CommentModel) community.Comment {
	return community.RestoreComment(e.ID, e.PostID, e.AuthorID, e.Body, e.CreatedAt)
}

// ToModel converts a community.Comment to a CommentModel.
func (CommentMapper) ToModel(c community.Comment) CommentModel {
	return CommentModel{
		ID:        c.ID(),
		PostID:    c.PostID(),
		AuthorID:  c.AuthorID(),
		Body:      c.Body(),
		CreatedAt: c.CreatedAt(),
	}
}

// TaskMapper maps between task.Task and TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a task.Task.
func (TaskMapper) ToDomain(e TaskModel) task.Task {
	return task.NewTaskWithID(e.ID, e.DedupKey, task.Operation(e.Type), e.Priority,
		normalizePayload(e.Payload), e.CreatedAt, e.UpdatedAt)
}

// ToModel converts a task.Task to a TaskModel.
func (TaskMapper) ToModel(t task.Task) TaskModel {
	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Type:      t.Operation().String(),
		Payload:   JSONMap(t.Payload()),
		Priority:  t.Priority(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

// normalizePayload turns integral json.Numbers back into int64 and the
// rest into float64, matching what handlers were given at enqueue time.
func normalizePayload(m JSONMap) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		n, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			out[k] = i
		} else if f, err := n.Float64(); err == nil {
			out[k] = f
		} else {
			out[k] = n.String()
		}
	}
	return out
}
