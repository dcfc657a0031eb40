package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat/internal/api/dto"
	"github.com/spec-kit/support-chat/internal/auth"
	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/service"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

// MessagesHandler serves chat message dispatch and history endpoints.
type MessagesHandler struct {
	service *service.ChatService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(chatService *service.ChatService) *MessagesHandler {
	return &MessagesHandler{service: chatService}
}

// SendMessage POST /messages. The sender defaults to the authenticated
// principal when the payload omits sender_id.
func (h *MessagesHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SenderID == "" {
		if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
			req.SenderID = principal.User.ID
		}
	}
	msg, err := h.service.SendMessage(c.UserContext(), req.TicketID, req.SenderID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// SendSystemMessage POST /messages/system.
func (h *MessagesHandler) SendSystemMessage(c *fiber.Ctx) error {
	var req dto.SystemMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.SendSystemMessage(c.UserContext(), req.TicketID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// GetHistory GET /messages/ticket/:ticketId. An optional since parameter
// (RFC 3339) narrows the window to recent messages.
func (h *MessagesHandler) GetHistory(c *fiber.Ctx) error {
	var (
		msgs []domain.ChatMessage
		err  error
	)
	if sinceStr := c.Query("since"); sinceStr != "" {
		since, parseErr := time.Parse(time.RFC3339, sinceStr)
		if parseErr != nil {
			return apperrors.NewValidationError("since must be RFC 3339", map[string]any{"since": sinceStr})
		}
		msgs, err = h.service.GetRecentMessages(c.UserContext(), c.Params("ticketId"), since)
	} else {
		msgs, err = h.service.GetTicketHistory(c.UserContext(), c.Params("ticketId"))
	}
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, messageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetMessage GET /messages/:id.
func (h *MessagesHandler) GetMessage(c *fiber.Ctx) error {
	msg, err := h.service.GetMessageByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// ListBySender GET /messages/sender/:senderId.
func (h *MessagesHandler) ListBySender(c *fiber.Ctx) error {
	msgs, err := h.service.ListMessagesBySender(c.UserContext(), c.Params("senderId"))
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, messageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CountMessages GET /tickets/:ticketId/messages/count.
func (h *MessagesHandler) CountMessages(c *fiber.Ctx) error {
	ticketID := c.Params("ticketId")
	count, err := h.service.CountMessagesByTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket_id": ticketID,
		"count":     count,
	}})
}

// GetStats GET /tickets/:ticketId/messages/stats.
func (h *MessagesHandler) GetStats(c *fiber.Ctx) error {
	ticketID := c.Params("ticketId")
	stats, err := h.service.GetTicketMessageStats(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessageStatsResponse{
		TicketID:       ticketID,
		TotalMessages:  stats.TotalMessages,
		UserMessages:   stats.UserMessages,
		SystemMessages: stats.SystemMessages,
		FirstMessageAt: stats.FirstMessageAt,
		LastMessageAt:  stats.LastMessageAt,
	}})
}

// NotifyTyping POST /tickets/:ticketId/typing.
func (h *MessagesHandler) NotifyTyping(c *fiber.Ctx) error {
	userID, err := presenceUserID(c)
	if err != nil {
		return err
	}
	if err := h.service.NotifyUserTyping(c.UserContext(), c.Params("ticketId"), userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NotifyJoined POST /tickets/:ticketId/join.
func (h *MessagesHandler) NotifyJoined(c *fiber.Ctx) error {
	userID, err := presenceUserID(c)
	if err != nil {
		return err
	}
	if err := h.service.NotifyUserJoined(c.UserContext(), c.Params("ticketId"), userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NotifyLeft POST /tickets/:ticketId/leave. Always succeeds.
func (h *MessagesHandler) NotifyLeft(c *fiber.Ctx) error {
	userID, err := presenceUserID(c)
	if err != nil {
		return err
	}
	h.service.NotifyUserLeft(c.UserContext(), c.Params("ticketId"), userID)
	return c.SendStatus(fiber.StatusNoContent)
}

func presenceUserID(c *fiber.Ctx) (string, error) {
	var req dto.PresenceRequest
	if err := c.BodyParser(&req); err == nil && req.UserID != "" {
		return req.UserID, nil
	}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		return principal.User.ID, nil
	}
	return "", apperrors.NewValidationError("user_id is required", nil)
}

func messageResponse(msg *domain.ChatMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		Kind:      msg.Kind,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
}
