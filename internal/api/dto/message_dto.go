package dto

import (
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	TicketID string `json:"ticket_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

// SystemMessageRequest payload.
type SystemMessageRequest struct {
	TicketID string `json:"ticket_id"`
	Content  string `json:"content"`
}

// PresenceRequest identifies the user joining, leaving or typing.
type PresenceRequest struct {
	UserID string `json:"user_id"`
}

// MessageResponse represents a stored chat message.
type MessageResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	Kind      domain.MessageKind `json:"kind"`
	SenderID  *string            `json:"sender_id"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

// MessageStatsResponse summarizes a ticket conversation.
type MessageStatsResponse struct {
	TicketID       string     `json:"ticket_id"`
	TotalMessages  int64      `json:"total_messages"`
	UserMessages   int64      `json:"user_messages"`
	SystemMessages int64      `json:"system_messages"`
	FirstMessageAt *time.Time `json:"first_message_at"`
	LastMessageAt  *time.Time `json:"last_message_at"`
}
