package dto

import (
	"time"

	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse carries an issued token and its user.
type SessionResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        *jsonapi.Resource `json:"user"`
}

// ProfileUpdateRequest is the body of PUT /profiles/me. Absent fields are
// left unchanged.
type ProfileUpdateRequest struct {
	Title        *string  `json:"title"`
	Bio          *string  `json:"bio"`
	Skills       []string `json:"skills"`
	Tags         []string `json:"tags"`
	Availability *string  `json:"availability"`
	Visibility   *string  `json:"visibility"`
}
