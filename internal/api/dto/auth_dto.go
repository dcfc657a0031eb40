package dto

import (
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
)

// LoginResponse carries both the fixed demo token and a signed JWT.
type LoginResponse struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Role        domain.UserRole `json:"role"`
}

// UserResponse represents a chat participant.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      domain.UserRole `json:"role"`
}
