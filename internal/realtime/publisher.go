package realtime

import (
	"context"
	"time"

	"github.com/spec-kit/support-chat/internal/domain"
)

// Publisher delivers a payload to every current subscriber of a named
// channel. Delivery is best effort: no acknowledgement, no retry, no
// ordering guarantee across channels.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// ChannelNotifications is the global channel for cross-ticket notices.
const ChannelNotifications = "notifications"

// MessageChannel names the per-ticket message feed.
func MessageChannel(ticketID string) string {
	return "messages." + ticketID
}

// TypingChannel names the per-ticket typing-indicator feed.
func TypingChannel(ticketID string) string {
	return "typing." + ticketID
}

// PresenceChannel names the per-ticket join/leave feed.
func PresenceChannel(ticketID string) string {
	return "users." + ticketID
}

// TicketChannels lists every channel a subscriber interested in one ticket
// should watch, including the global notifications feed.
func TicketChannels(ticketID string) []string {
	return []string{
		MessageChannel(ticketID),
		TypingChannel(ticketID),
		PresenceChannel(ticketID),
		ChannelNotifications,
	}
}

// MessageEvent is the wire form of a chat message on a message channel.
type MessageEvent struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticket_id"`
	Kind      domain.MessageKind `json:"kind"`
	SenderID  *string            `json:"sender_id,omitempty"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewMessageEvent converts a persisted message for publication.
func NewMessageEvent(msg *domain.ChatMessage) MessageEvent {
	return MessageEvent{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		Kind:      msg.Kind,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
}

// Notice is the wire form of typing, presence and global notifications.
type Notice struct {
	Event    string `json:"event"`
	TicketID string `json:"ticket_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Text     string `json:"text"`
}
