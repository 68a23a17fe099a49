// Package organization provides organizations and their memberships.
package organization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atas-platform/atas/domain"
)

// MemberRole is a user's role inside an organization.
type MemberRole string

// MemberRole values.
const (
	MemberOwner  MemberRole = "owner"
	MemberAdmin  MemberRole = "admin"
	MemberMember MemberRole = "member"
)

// ParseMemberRole validates a member role. Empty means member.
func ParseMemberRole(s string) (MemberRole, error) {
	switch r := MemberRole(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return MemberMember, nil
	case MemberOwner, MemberAdmin, MemberMember:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown member role %q", domain.ErrValidation, s)
	}
}

// CanManage reports whether the role may add or remove members.
func (r MemberRole) CanManage() bool {
	return r == MemberOwner || r == MemberAdmin
}

// Organization groups organizers and their events.
type Organization struct {
	id          int64
	name        string
	description string
	ownerID     int64
	createdAt   time.Time
}

// New validates and creates an Organization.
func New(name, description string, ownerID int64) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return Organization{
		name:        name,
		description: strings.TrimSpace(description),
		ownerID:     ownerID,
		createdAt:   time.Now().UTC(),
	}, nil
}

// Restore reconstructs a stored Organization.
func Restore(id int64, name, description string, ownerID int64, createdAt time.Time) Organization {
	return Organization{id: id, name: name, description: description, ownerID: ownerID, createdAt: createdAt}
}

// ID returns the organization id.
func (o Organization) ID() int64 { return o.id }

// Name returns the unique name.
func (o Organization) Name() string { return o.name }

// Description returns the description.
func (o Organization) Description() string { return o.description }

// OwnerID returns the creating user.
func (o Organization) OwnerID() int64 { return o.ownerID }

// CreatedAt returns the creation time.
func (o Organization) CreatedAt() time.Time { return o.createdAt }

// Membership links a user to an organization.
type Membership struct {
	OrganizationID int64
	UserID         int64
	Role           MemberRole
	CreatedAt      time.Time
}

// Store persists organizations and memberships.
type Store interface {
	Get(ctx context.Context, id int64) (Organization, error)
	Save(ctx context.Context, o Organization) (Organization, error)
	Members(ctx context.Context, orgID int64) ([]Membership, error)
	Membership(ctx context.Context, orgID, userID int64) (Membership, error)
	SaveMembership(ctx context.Context, m Membership) error
	RemoveMembership(ctx context.Context, orgID, userID int64) error
}
