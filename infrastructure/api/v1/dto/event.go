package dto

import "time"

// EventRequest is the body of event create and update.
type EventRequest struct {
	OrganizationID int64      `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Format         string     `json:"format"`
	Location       string     `json:"location"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	Capacity       int        `json:"capacity"`
}

// OrganizationRequest is the body of POST /organizations.
type OrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MemberRequest is the body of POST /organizations/{id}/members.
type MemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// BodyRequest is the body of post and comment creation.
type BodyRequest struct {
	Body string `json:"body"`
}
