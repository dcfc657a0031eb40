package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/domain"
	"github.com/spec-kit/support-chat/internal/repository"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

const (
	maxSubjectLength     = 255
	maxDescriptionLength = 5000

	// Agents carrying this many active tickets stop receiving
	// auto-assignments.
	maxActiveTicketsPerAgent = 5
)

// TicketService owns the ticket status state machine and assignment rules.
type TicketService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	logger  *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		logger:  deps.Logger,
	}
}

// TicketPatch describes a partial ticket update; nil fields are untouched.
type TicketPatch struct {
	Subject       *string
	Description   *string
	Status        *domain.TicketStatus
	AssignedAgent *string
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusOpen},
	domain.TicketStatusClosed:     {domain.TicketStatusOpen},
}

// ValidateTransition checks the status state machine. A transition to the
// current status is a no-op success.
func ValidateTransition(current, next domain.TicketStatus) error {
	if next == "" || current == next {
		return nil
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return nil
		}
	}
	return apperrors.NewIllegalState("invalid status transition", map[string]any{
		"from": current,
		"to":   next,
	})
}

// CreateTicket validates, auto-assigns when possible and persists a ticket.
func (s *TicketService) CreateTicket(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, ticket.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("creating ticket",
		zap.String("subject", ticket.Subject),
		zap.String("requester", user.Email))

	if ticket.AssignedAgent == nil {
		s.assignAvailableAgent(ctx, ticket)
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)))
	return ticket, nil
}

// UpdateTicket applies a partial update after validating any status change.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		if err := ValidateTransition(ticket.Status, *patch.Status); err != nil {
			return nil, err
		}
	}

	if patch.Subject != nil {
		ticket.Subject = *patch.Subject
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.AssignedAgent != nil {
		ticket.AssignedAgent = patch.AssignedAgent
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket updated", zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

// AssignToAgent sets the assigned agent and promotes OPEN tickets.
func (s *TicketService) AssignToAgent(ctx context.Context, ticketID, agentName string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewIllegalState("cannot assign a resolved or closed ticket", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}

	ticket.AssignedAgent = &agentName
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("agent", agentName))
	return ticket, nil
}

// ResolveTicket marks a ticket RESOLVED, appending the resolution text.
func (s *TicketService) ResolveTicket(ctx context.Context, ticketID, resolution string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewIllegalState("cannot resolve a closed ticket", map[string]any{"ticket_id": ticketID})
	}

	ticket.Status = domain.TicketStatusResolved
	if strings.TrimSpace(resolution) != "" {
		ticket.Description = ticket.Description + "\n\n[RESOLUTION] " + resolution
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket resolved", zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

// CloseTicket sets status CLOSED; every state permits closing.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket closed", zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

// ReopenTicket returns a resolved or closed ticket to OPEN.
func (s *TicketService) ReopenTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusInProgress {
		return nil, apperrors.NewIllegalState("ticket is already open or in progress", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}

	ticket.Status = domain.TicketStatusOpen
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket reopened", zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

// GetTicketByID fetches a single ticket.
func (s *TicketService) GetTicketByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns every ticket.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListTicketsByUser returns a user's tickets, validating the user exists.
func (s *TicketService) ListTicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListTicketsByAgent returns tickets assigned to the named agent.
func (s *TicketService) ListTicketsByAgent(ctx context.Context, agentName string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByAgent(ctx, agentName)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListTicketsByStatus returns tickets in the given status.
func (s *TicketService) ListTicketsByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListActiveTickets returns the union of OPEN and IN_PROGRESS tickets.
func (s *TicketService) ListActiveTickets(ctx context.Context) ([]domain.Ticket, error) {
	open, err := s.tickets.ListByStatus(ctx, domain.TicketStatusOpen)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	inProgress, err := s.tickets.ListByStatus(ctx, domain.TicketStatusInProgress)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return append(open, inProgress...), nil
}

// CountTicketsByUserAndStatus counts a user's tickets in one status.
func (s *TicketService) CountTicketsByUserAndStatus(ctx context.Context, userID string, status domain.TicketStatus) (int, error) {
	tickets, err := s.tickets.ListByUserAndStatus(ctx, userID, status)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return len(tickets), nil
}

// assignAvailableAgent picks the agent with the fewest active tickets,
// leaving the ticket unassigned when every agent is at the load threshold.
// Linear over agents × tickets; fine at support-team scale.
func (s *TicketService) assignAvailableAgent(ctx context.Context, ticket *domain.Ticket) {
	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		s.logger.Warn("agent lookup failed during auto-assignment", zap.Error(err))
		return
	}
	if len(agents) == 0 {
		s.logger.Warn("no agents available for auto-assignment")
		return
	}

	var bestAgent string
	minActive := -1
	for i := range agents {
		name := agents[i].DisplayName()
		assigned, err := s.tickets.ListByAgent(ctx, name)
		if err != nil {
			s.logger.Warn("ticket count failed during auto-assignment",
				zap.String("agent", name), zap.Error(err))
			continue
		}
		active := 0
		for j := range assigned {
			if assigned[j].IsActive() {
				active++
			}
		}
		if minActive < 0 || active < minActive {
			minActive = active
			bestAgent = name
		}
	}

	if bestAgent != "" && minActive < maxActiveTicketsPerAgent {
		ticket.AssignedAgent = &bestAgent
		s.logger.Info("ticket auto-assigned", zap.String("agent", bestAgent))
	} else {
		s.logger.Info("all agents at capacity, ticket left unassigned")
	}
}

func (s *TicketService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func validateTicket(ticket *domain.Ticket) error {
	if ticket == nil {
		return apperrors.NewValidationError("ticket is required", nil)
	}
	if ticket.UserID == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	if strings.TrimSpace(ticket.Subject) == "" {
		return apperrors.NewValidationError("subject is required", nil)
	}
	if utf8.RuneCountInString(ticket.Subject) > maxSubjectLength {
		return apperrors.NewValidationError("subject cannot exceed 255 characters", nil)
	}
	if utf8.RuneCountInString(ticket.Description) > maxDescriptionLength {
		return apperrors.NewValidationError("description cannot exceed 5000 characters", nil)
	}
	return nil
}
