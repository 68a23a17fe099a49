package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/notification"
	"github.com/atas-platform/atas/domain/organization"
)

// Organizations manages organizations and their members.
type Organizations struct {
	store         organization.Store
	users         account.UserStore
	notifications *Notifications
	logger        *slog.Logger
}

// NewOrganizations creates an Organizations service.
func NewOrganizations(store organization.Store, users account.UserStore, notifications *Notifications, logger *slog.Logger) *Organizations {
	return &Organizations{store: store, users: users, notifications: notifications, logger: logger}
}

// Create makes an organization owned by the actor.
func (s *Organizations) Create(ctx context.Context, actor Actor, name, description string) (organization.Organization, error) {
	if !actor.Role.CanOrganize() {
		return organization.Organization{}, fmt.Errorf("%w: only organizers can create organizations", domain.ErrForbidden)
	}
	o, err := organization.New(name, description, actor.UserID)
	if err != nil {
		return organization.Organization{}, err
	}
	o, err = s.store.Save(ctx, o)
	if err != nil {
		return organization.Organization{}, err
	}
	owner := organization.Membership{
		OrganizationID: o.ID(),
		UserID:         actor.UserID,
		Role:           organization.MemberOwner,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.SaveMembership(ctx, owner); err != nil {
		return organization.Organization{}, fmt.Errorf("save owner membership: %w", err)
	}

	s.logger.Info("organization created", slog.Int64("organization_id", o.ID()), slog.Int64("owner_id", actor.UserID))
	return o, nil
}

// Get returns an organization.
func (s *Organizations) Get(ctx context.Context, id int64) (organization.Organization, error) {
	return s.store.Get(ctx, id)
}

// Members lists an organization's members, oldest first.
func (s *Organizations) Members(ctx context.Context, id int64) ([]organization.Membership, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Members(ctx, id)
}

// AddMember adds userID or changes their role. Only owners and admins of
// the organization may do so, and only owners may appoint owners.
func (s *Organizations) AddMember(ctx context.Context, actor Actor, orgID, userID int64, role organization.MemberRole) (organization.Membership, error) {
	manager, err := s.manager(ctx, actor, orgID)
	if err != nil {
		return organization.Membership{}, err
	}
	if role == organization.MemberOwner && manager != organization.MemberOwner {
		return organization.Membership{}, fmt.Errorf("%w: only owners can appoint owners", domain.ErrForbidden)
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return organization.Membership{}, err
	}

	m := organization.Membership{OrganizationID: orgID, UserID: userID, Role: role, CreatedAt: time.Now().UTC()}
	if existing, err := s.store.Membership(ctx, orgID, userID); err == nil {
		m.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveMembership(ctx, m); err != nil {
		return organization.Membership{}, err
	}

	o, err := s.store.Get(ctx, orgID)
	if err == nil {
		s.notifications.Notify(ctx, userID, notification.KindMemberAdded, fmt.Sprintf("You are now %s of %s", role, o.Name()))
	}
	return m, nil
}

// RemoveMember removes userID. Managers may remove others; anyone may
// leave. The organization's owner cannot be removed.
func (s *Organizations) RemoveMember(ctx context.Context, actor Actor, orgID, userID int64) error {
	o, err := s.store.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if userID == o.OwnerID() {
		return fmt.Errorf("%w: the owner cannot be removed", domain.ErrConflict)
	}
	if actor.UserID != userID {
		if _, err := s.manager(ctx, actor, orgID); err != nil {
			return err
		}
	}
	return s.store.RemoveMembership(ctx, orgID, userID)
}

// manager returns the actor's role when it may manage members.
func (s *Organizations) manager(ctx context.Context, actor Actor, orgID int64) (organization.MemberRole, error) {
	if _, err := s.store.Get(ctx, orgID); err != nil {
		return "", err
	}
	if actor.IsAdmin() {
		return organization.MemberOwner, nil
	}
	m, err := s.store.Membership(ctx, orgID, actor.UserID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !m.Role.CanManage()) {
		return "", fmt.Errorf("%w: cannot manage organization %d", domain.ErrForbidden, orgID)
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
