package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/organization"
	"github.com/atas-platform/atas/domain/repository"
	"github.com/atas-platform/atas/internal/database"
)

// OrganizationStore implements organization.Store using GORM.
type OrganizationStore struct {
	database.Repository[organization.Organization, OrganizationModel]
}

// NewOrganizationStore creates a new OrganizationStore.
func NewOrganizationStore(db database.Database) OrganizationStore {
	return OrganizationStore{
		Repository: database.NewRepository[organization.Organization, OrganizationModel](db, OrganizationMapper{}, "organization"),
	}
}

// Get retrieves an organization by id.
func (s OrganizationStore) Get(ctx context.Context, id int64) (organization.Organization, error) {
	o, err := s.FindOne(ctx, repository.WithID(id))
	return o, translate(err)
}

// Save creates or updates an organization. Names are unique.
func (s OrganizationStore) Save(ctx context.Context, o organization.Organization) (organization.Organization, error) {
	saved, err := s.Repository.Save(ctx, o)
	return saved, translate(err)
}

// Members lists the memberships of an organization, oldest first.
func (s OrganizationStore) Members(ctx context.Context, orgID int64) ([]organization.Membership, error) {
	var models []MembershipModel
	err := s.DB(ctx).Where("organization_id = ?", orgID).Order("created_at ASC, user_id ASC").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	out := make([]organization.Membership, len(models))
	for i, m := range models {
		out[i] = membershipToDomain(m)
	}
	return out, nil
}

// Membership returns one user's membership.
func (s OrganizationStore) Membership(ctx context.Context, orgID, userID int64) (organization.Membership, error) {
	var m MembershipModel
	err := s.DB(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return organization.Membership{}, fmt.Errorf("%w: membership", domain.ErrNotFound)
	}
	if err != nil {
		return organization.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	return membershipToDomain(m), nil
}

// SaveMembership creates or updates a membership.
func (s OrganizationStore) SaveMembership(ctx context.Context, m organization.Membership) error {
	model := MembershipModel{
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           string(m.Role),
		CreatedAt:      m.CreatedAt,
	}
	if err := s.DB(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("save membership: %w", err)
	}
	return nil
}

// RemoveMembership deletes a membership.
func (s OrganizationStore) RemoveMembership(ctx context.Context, orgID, userID int64) error {
	result := s.DB(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID).Delete(&MembershipModel{})
	if result.Error != nil {
		return fmt.Errorf("remove membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: membership", domain.ErrNotFound)
	}
	return nil
}

func membershipToDomain(m MembershipModel) organization.Membership {
	return organization.Membership{
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           organization.MemberRole(m.Role),
		CreatedAt:      m.CreatedAt,
	}
}
