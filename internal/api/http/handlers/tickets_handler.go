package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-chat/internal/api/dto"
	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/service"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), &domain.Ticket{
		UserID:      req.UserID,
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext())
	return renderTickets(c, tickets, err)
}

// ListActiveTickets GET /tickets/active.
func (h *TicketsHandler) ListActiveTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListActiveTickets(c.UserContext())
	return renderTickets(c, tickets, err)
}

// ListTicketsByUser GET /tickets/user/:userId.
func (h *TicketsHandler) ListTicketsByUser(c *fiber.Ctx) error {
	tickets, err := h.service.ListTicketsByUser(c.UserContext(), c.Params("userId"))
	return renderTickets(c, tickets, err)
}

// ListTicketsByAgent GET /tickets/agent/:agent.
func (h *TicketsHandler) ListTicketsByAgent(c *fiber.Ctx) error {
	agent, err := url.PathUnescape(c.Params("agent"))
	if err != nil {
		return apperrors.NewValidationError("invalid agent name", nil)
	}
	tickets, err := h.service.ListTicketsByAgent(c.UserContext(), agent)
	return renderTickets(c, tickets, err)
}

// ListTicketsByStatus GET /tickets/status/:status.
func (h *TicketsHandler) ListTicketsByStatus(c *fiber.Ctx) error {
	status := domain.TicketStatus(strings.ToUpper(c.Params("status")))
	tickets, err := h.service.ListTicketsByStatus(c.UserContext(), status)
	return renderTickets(c, tickets, err)
}

func renderTickets(c *fiber.Ctx, tickets []domain.Ticket, err error) error {
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id. Only fields present in the payload change.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), service.TicketPatch{
		Subject:       req.Subject,
		Description:   req.Description,
		Status:        req.Status,
		AssignedAgent: req.AssignedAgent,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AgentName) == "" {
		return apperrors.NewValidationError("agent_name is required", nil)
	}
	ticket, err := h.service.AssignToAgent(c.UserContext(), c.Params("id"), req.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ResolveTicket POST /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ResolveTicket(c.UserContext(), c.Params("id"), req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	ticket, err := h.service.CloseTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	ticket, err := h.service.ReopenTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            ticket.ID,
		UserID:        ticket.UserID,
		Subject:       ticket.Subject,
		Description:   ticket.Description,
		Status:        ticket.Status,
		AssignedAgent: ticket.AssignedAgent,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}
