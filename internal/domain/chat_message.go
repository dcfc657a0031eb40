package domain

import "time"

// MessageKind indicates who authored a chat message.
type MessageKind string

const (
	MessageKindUser   MessageKind = "USER"
	MessageKindSystem MessageKind = "SYSTEM"
)

// ChatMessage is a single entry in a ticket conversation. System messages
// carry no sender: Kind is the discriminator, SenderID is nil iff SYSTEM.
type ChatMessage struct {
	ID        string
	TicketID  string
	Kind      MessageKind
	SenderID  *string
	Content   string
	Timestamp time.Time
}

// IsSystem reports whether the message was generated by the service itself.
func (m *ChatMessage) IsSystem() bool {
	return m.Kind == MessageKindSystem
}
