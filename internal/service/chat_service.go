package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/realtime"
	"github.com/spec-kit/support-chat/internal/repository"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

const (
	maxMessageLength = 1000

	systemMessagePrefix = "[SYSTEM] "
)

// IdentityResolver maps a user id to the sender's identity. Backed by the
// user service here; a production deployment would call an identity service.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.User, error)
}

// ChatService validates, persists and fans out chat messages, mutating
// ticket state as a side effect of the message flow.
type ChatService struct {
	messages  repository.ChatMessageRepository
	tickets   repository.TicketRepository
	identity  IdentityResolver
	publisher realtime.Publisher
	logger    *zap.Logger
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	MessageRepo repository.ChatMessageRepository
	TicketRepo  repository.TicketRepository
	Identity    IdentityResolver
	Publisher   realtime.Publisher
	Logger      *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		messages:  deps.MessageRepo,
		tickets:   deps.TicketRepo,
		identity:  deps.Identity,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

// MessageStats summarizes a ticket's conversation.
type MessageStats struct {
	TotalMessages  int64
	UserMessages   int64
	SystemMessages int64
	FirstMessageAt *time.Time
	LastMessageAt  *time.Time
}

// SendMessage validates and persists a user message, promotes the ticket on
// the first client reply and fans the message out to subscribers. Only
// validation, lookup and persistence failures propagate; the promotion and
// the publishes are best effort.
func (s *ChatService) SendMessage(ctx context.Context, ticketID, senderID, content string) (*domain.ChatMessage, error) {
	if err := validateMessageInput(ticketID, senderID, content); err != nil {
		return nil, err
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewIllegalState("cannot send a message to a closed ticket", map[string]any{"ticket_id": ticketID})
	}

	sender, err := s.identity.Resolve(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		TicketID:  ticketID,
		Kind:      domain.MessageKindUser,
		SenderID:  &sender.ID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.promoteTicketIfNeeded(ctx, ticket, sender)

	s.publish(ctx, realtime.MessageChannel(ticketID), realtime.NewMessageEvent(msg))
	s.publish(ctx, realtime.ChannelNotifications, realtime.Notice{
		Event:    "message",
		TicketID: ticketID,
		Text:     "new message in ticket " + ticketID,
	})

	s.logger.Info("message sent",
		zap.String("ticket_id", ticketID),
		zap.String("message_id", msg.ID))
	return msg, nil
}

// SendSystemMessage persists an automated notice on a ticket. Closed
// tickets are accepted on purpose: closure and departure notices post
// after the ticket is closed.
func (s *ChatService) SendSystemMessage(ctx context.Context, ticketID, content string) (*domain.ChatMessage, error) {
	if ticketID == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		TicketID:  ticketID,
		Kind:      domain.MessageKindSystem,
		SenderID:  nil,
		Content:   systemMessagePrefix + content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, realtime.MessageChannel(ticketID), realtime.NewMessageEvent(msg))

	s.logger.Info("system message sent",
		zap.String("ticket_id", ticketID),
		zap.String("message_id", msg.ID))
	return msg, nil
}

// GetTicketHistory returns all messages for a ticket, oldest first.
func (s *ChatService) GetTicketHistory(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// GetRecentMessages returns messages at or after the given time, ascending.
func (s *ChatService) GetRecentMessages(ctx context.Context, ticketID string, since time.Time) ([]domain.ChatMessage, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicketSince(ctx, ticketID, since)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// GetMessageByID fetches a single message.
func (s *ChatService) GetMessageByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("message", map[string]any{"message_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return msg, nil
}

// ListMessagesBySender returns a user's messages across tickets.
func (s *ChatService) ListMessagesBySender(ctx context.Context, senderID string) ([]domain.ChatMessage, error) {
	if _, err := s.identity.Resolve(ctx, senderID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySender(ctx, senderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// CountMessagesByTicket counts a ticket's messages.
func (s *ChatService) CountMessagesByTicket(ctx context.Context, ticketID string) (int64, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return 0, err
	}
	count, err := s.messages.CountByTicket(ctx, ticketID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// NotifyUserTyping publishes an ephemeral typing indicator; nothing is
// persisted.
func (s *ChatService) NotifyUserTyping(ctx context.Context, ticketID, userID string) error {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return err
	}
	user, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	s.publish(ctx, realtime.TypingChannel(ticketID), realtime.Notice{
		Event:    "typing",
		TicketID: ticketID,
		UserID:   user.ID,
		Text:     user.FirstName + " is typing...",
	})
	return nil
}

// NotifyUserJoined records a join notice in the conversation and announces
// it on the presence channel.
func (s *ChatService) NotifyUserJoined(ctx context.Context, ticketID, userID string) error {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return err
	}
	user, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.SendSystemMessage(ctx, ticketID, user.DisplayName()+" has joined the conversation"); err != nil {
		return err
	}
	s.publish(ctx, realtime.PresenceChannel(ticketID), realtime.Notice{
		Event:    "joined",
		TicketID: ticketID,
		UserID:   user.ID,
		Text:     "User connected: " + user.FirstName,
	})
	return nil
}

// NotifyUserLeft mirrors NotifyUserJoined but never fails: disconnects are
// best effort and every internal error is logged and swallowed.
func (s *ChatService) NotifyUserLeft(ctx context.Context, ticketID, userID string) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		s.logger.Warn("leave notification skipped", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	user, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		s.logger.Warn("leave notification skipped", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if _, err := s.SendSystemMessage(ctx, ticketID, user.DisplayName()+" has left the conversation"); err != nil {
		s.logger.Warn("leave system message failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	s.publish(ctx, realtime.PresenceChannel(ticketID), realtime.Notice{
		Event:    "left",
		TicketID: ticketID,
		UserID:   user.ID,
		Text:     "User disconnected: " + user.FirstName,
	})
}

// GetTicketMessageStats summarizes the conversation of a ticket.
func (s *ChatService) GetTicketMessageStats(ctx context.Context, ticketID string) (*MessageStats, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &MessageStats{TotalMessages: int64(len(msgs))}
	for i := range msgs {
		if msgs[i].IsSystem() {
			stats.SystemMessages++
		} else {
			stats.UserMessages++
		}
	}
	if len(msgs) > 0 {
		first := msgs[0].Timestamp
		last := msgs[len(msgs)-1].Timestamp
		stats.FirstMessageAt = &first
		stats.LastMessageAt = &last
	}
	return stats, nil
}

// promoteTicketIfNeeded moves an OPEN ticket to IN_PROGRESS on the first
// client message. The write goes straight to the repository: OPEN to
// IN_PROGRESS is always a legal transition and routing it through
// UpdateTicket would re-run validation reentrantly. Failures are logged
// and swallowed; the message itself is already persisted.
func (s *ChatService) promoteTicketIfNeeded(ctx context.Context, ticket *domain.Ticket, sender *domain.User) {
	if ticket.Status != domain.TicketStatusOpen || sender.Role != domain.RoleClient {
		return
	}
	ticket.Status = domain.TicketStatusInProgress
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.logger.Warn("ticket promotion failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	s.logger.Info("first client message received, ticket moved to IN_PROGRESS",
		zap.String("ticket_id", ticket.ID))
}

// publish is fire and forget: message delivery never depends on it.
func (s *ChatService) publish(ctx context.Context, channel string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, channel, payload); err != nil {
		s.logger.Error("realtime publish failed",
			zap.String("channel", channel), zap.Error(err))
	}
}

func (s *ChatService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func validateMessageInput(ticketID, senderID, content string) error {
	if ticketID == "" {
		return apperrors.NewValidationError("ticket id is required", nil)
	}
	if senderID == "" {
		return apperrors.NewValidationError("sender id is required", nil)
	}
	return validateContent(content)
}

func validateContent(content string) error {
	if content == "" {
		return apperrors.NewValidationError("message content is required", nil)
	}
	// Limits count characters, not bytes.
	if utf8.RuneCountInString(content) > maxMessageLength {
		return apperrors.NewValidationError("message cannot exceed 1000 characters", nil)
	}
	return nil
}
