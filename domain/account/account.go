// Package account provides users, their roles, and expert profiles.
package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/embedding"
	"github.com/atas-platform/atas/domain/repository"
)

// Role is a user's platform role.
type Role string

// Role values.
const (
	RoleAttendee  Role = "attendee"
	RoleExpert    Role = "expert"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role string. Empty means attendee.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleAttendee, nil
	case RoleAttendee, RoleExpert, RoleOrganizer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, s)
	}
}

// CanOrganize reports whether the role may create events.
func (r Role) CanOrganize() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// Visibility controls whether a profile appears in search.
type Visibility string

// Visibility values.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility validates a visibility string. Empty means public.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityPrivate:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q", domain.ErrValidation, s)
	}
}

// User is an account on the platform.
type User struct {
	id           int64
	email        string
	passwordHash string
	fullName     string
	role         Role
	createdAt    time.Time
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser validates and creates a User. The password hash is computed by
// the caller.
func NewUser(email, passwordHash, fullName string, role Role) (User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: full name is required", domain.ErrValidation)
	}
	return User{
		email:        email,
		passwordHash: passwordHash,
		fullName:     fullName,
		role:         role,
		createdAt:    time.Now().UTC(),
	}, nil
}

// RestoreUser reconstructs a stored User.
func RestoreUser(id int64, email, passwordHash, fullName string, role Role, createdAt time.Time) User {
	return User{id: id, email: email, passwordHash: passwordHash, fullName: fullName, role: role, createdAt: createdAt}
}

// ID returns the user id.
func (u User) ID() int64 { return u.id }

// Email returns the normalised email.
func (u User) Email() string { return u.email }

// PasswordHash returns the stored password hash.
func (u User) PasswordHash() string { return u.passwordHash }

// FullName returns the display name.
func (u User) FullName() string { return u.fullName }

// Role returns the platform role.
func (u User) Role() Role { return u.role }

// CreatedAt returns the registration time.
func (u User) CreatedAt() time.Time { return u.createdAt }

// Profile is the public-facing description of a user.
type Profile struct {
	userID       int64
	title        string
	bio          string
	skills       []string
	tags         []string
	availability string
	visibility   Visibility
	updatedAt    time.Time
}

// NewProfile creates an empty public profile for a user.
func NewProfile(userID int64) Profile {
	return Profile{userID: userID, visibility: VisibilityPublic, updatedAt: time.Now().UTC()}
}

// RestoreProfile reconstructs a stored Profile.
func RestoreProfile(userID int64, title, bio string, skills, tags []string, availability string, visibility Visibility, updatedAt time.Time) Profile {
	return Profile{
		userID:       userID,
		title:        title,
		bio:          bio,
		skills:       append([]string(nil), skills...),
		tags:         append([]string(nil), tags...),
		availability: availability,
		visibility:   visibility,
		updatedAt:    updatedAt,
	}
}

// UserID returns the owning user.
func (p Profile) UserID() int64 { return p.userID }

// Title returns the headline.
func (p Profile) Title() string { return p.title }

// Bio returns the free-text biography.
func (p Profile) Bio() string { return p.bio }

// Skills returns a copy of the skills list.
func (p Profile) Skills() []string { return append([]string(nil), p.skills...) }

// Tags returns a copy of the tags list.
func (p Profile) Tags() []string { return append([]string(nil), p.tags...) }

// Availability returns the free-text availability.
func (p Profile) Availability() string { return p.availability }

// Visibility returns the search visibility.
func (p Profile) Visibility() Visibility { return p.visibility }

// UpdatedAt returns the last modification time.
func (p Profile) UpdatedAt() time.Time { return p.updatedAt }

// ProfileUpdate carries optional profile changes. Nil fields are left alone.
type ProfileUpdate struct {
	Title        *string
	Bio          *string
	Skills       []string
	Tags         []string
	Availability *string
	Visibility   *Visibility
}

// Apply returns the profile with the update applied, and whether any field
// that feeds the embedding text changed.
func (p Profile) Apply(u ProfileUpdate) (Profile, bool) {
	next := p
	if u.Title != nil {
		next.title = strings.TrimSpace(*u.Title)
	}
	if u.Bio != nil {
		next.bio = strings.TrimSpace(*u.Bio)
	}
	if u.Skills != nil {
		next.skills = append([]string(nil), u.Skills...)
	}
	if u.Tags != nil {
		next.tags = append([]string(nil), u.Tags...)
	}
	if u.Availability != nil {
		next.availability = strings.TrimSpace(*u.Availability)
	}
	if u.Visibility != nil {
		next.visibility = *u.Visibility
	}
	next.updatedAt = time.Now().UTC()
	return next, EmbeddingText(p, "") != EmbeddingText(next, "")
}

// EmbeddingText builds the text embedded for a profile: name, title, bio,
// skills, tags and availability.
func EmbeddingText(p Profile, fullName string) string {
	return embedding.JoinText(
		fullName,
		p.title,
		p.bio,
		embedding.JoinList(p.skills),
		embedding.JoinList(p.tags),
		p.availability,
	)
}

// ExpertView joins a user with their profile.
type ExpertView struct {
	User    User
	Profile Profile
}

// UserStore persists users.
type UserStore interface {
	Get(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Find(ctx context.Context, options ...repository.Option) ([]User, error)
	Save(ctx context.Context, u User) (User, error)
}

// ProfileStore persists profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID int64) (Profile, error)
	Save(ctx context.Context, p Profile) (Profile, error)
	// IDs returns every profile's user id, in ascending order.
	IDs(ctx context.Context) ([]int64, error)
	// Search returns public profiles (with users) matching the options.
	Search(ctx context.Context, options ...repository.Option) ([]ExpertView, error)
	// View returns the user and profile for the given user ids, keeping
	// the order of ids and skipping missing entries.
	View(ctx context.Context, ids []int64) ([]ExpertView, error)
}

// WithVisibility filters profiles by visibility.
func WithVisibility(v Visibility) repository.Option {
	return repository.WithCondition("profiles.visibility", string(v))
}

// WithRole filters by user role.
func WithRole(r Role) repository.Option {
	return repository.WithCondition("users.role", string(r))
}

// WithText matches profiles whose name, title, bio or availability contains term.
func WithText(term string) repository.Option {
	return repository.WithContains(term,
		"users.full_name", "profiles.title", "profiles.bio", "profiles.availability",
		"profiles.skills", "profiles.tags")
}
