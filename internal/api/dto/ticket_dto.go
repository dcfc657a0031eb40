package dto

import (
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	UserID      string `json:"user_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// UpdateTicketRequest applies a partial patch; nil fields are untouched.
type UpdateTicketRequest struct {
	Subject       *string              `json:"subject"`
	Description   *string              `json:"description"`
	Status        *domain.TicketStatus `json:"status"`
	AssignedAgent *string              `json:"assigned_agent"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentName string `json:"agent_name"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	Resolution string `json:"resolution"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Subject       string              `json:"subject"`
	Description   string              `json:"description"`
	Status        domain.TicketStatus `json:"status"`
	AssignedAgent *string             `json:"assigned_agent"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
