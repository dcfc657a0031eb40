package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/domain"
	apperrors "github.com/spec-kit/support-chat/pkg/util/errorutil"
)

func newTicketFixture(t *testing.T) (*TicketService, *memTicketRepo, *memUserRepo) {
	t.Helper()
	tickets := newMemTicketRepo()
	users := newMemUserRepo()
	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Logger:     zap.NewNop(),
	})
	return svc, tickets, users
}

func seedUser(t *testing.T, users *memUserRepo, first, last string, role domain.UserRole) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:     strings.ToLower(first) + "." + strings.ToLower(last) + "@example.com",
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedTicket(t *testing.T, tickets *memTicketRepo, userID string, status domain.TicketStatus, agent *string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		UserID:        userID,
		Subject:       "printer on fire",
		Description:   "smoke everywhere",
		Status:        status,
		AssignedAgent: agent,
	}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to domain.TicketStatus
		ok       bool
	}{
		{domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{domain.TicketStatusOpen, domain.TicketStatusClosed, true},
		{domain.TicketStatusOpen, domain.TicketStatusResolved, false},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed, true},
		{domain.TicketStatusInProgress, domain.TicketStatusOpen, true},
		{domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{domain.TicketStatusResolved, domain.TicketStatusOpen, true},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress, false},
		{domain.TicketStatusClosed, domain.TicketStatusOpen, true},
		{domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
		{domain.TicketStatusClosed, domain.TicketStatusResolved, false},
		// Same-status transitions are no-op successes.
		{domain.TicketStatusOpen, domain.TicketStatusOpen, true},
		{domain.TicketStatusClosed, domain.TicketStatusClosed, true},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s -> %s: expected error", tc.from, tc.to)
			} else if !apperrors.HasCode(err, apperrors.CodeIllegalState) {
				t.Errorf("%s -> %s: expected ILLEGAL_STATE, got %v", tc.from, tc.to, err)
			}
		}
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	cases := []struct {
		name   string
		ticket *domain.Ticket
	}{
		{"missing user", &domain.Ticket{Subject: "help", Description: "x"}},
		{"blank subject", &domain.Ticket{UserID: client.ID, Subject: "   ", Description: "x"}},
		{"subject too long", &domain.Ticket{UserID: client.ID, Subject: strings.Repeat("s", 256), Description: "x"}},
		{"description too long", &domain.Ticket{UserID: client.ID, Subject: "help", Description: strings.Repeat("d", 5001)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTicket(context.Background(), tc.ticket); !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
		})
	}

	if _, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: "nope", Subject: "help", Description: "x",
	}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown user, got %v", err)
	}
}

func TestCreateTicketSubjectLengthCountsCharacters(t *testing.T) {
	svc, _, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	// 255 two-byte runes exceed 255 bytes but sit exactly at the limit.
	if _, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: strings.Repeat("ü", 255), Description: "x",
	}); err != nil {
		t.Fatalf("255-rune subject rejected: %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: strings.Repeat("ü", 256), Description: "x",
	}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED at 256 runes, got %v", err)
	}
}

func TestCreateTicketDefaultsToOpen(t *testing.T) {
	svc, _, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	ticket, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: "help", Description: "details",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", ticket.Status)
	}
}

func TestCreateTicketAutoAssignsLeastLoadedAgent(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	agentA := seedUser(t, users, "Alice", "Ashford", domain.RoleAgent)
	agentB := seedUser(t, users, "Bob", "Barker", domain.RoleAgent)
	agentC := seedUser(t, users, "Cara", "Cole", domain.RoleAgent)

	load := map[*domain.User]int{agentA: 2, agentB: 4, agentC: 0}
	for agent, n := range load {
		name := agent.DisplayName()
		for i := 0; i < n; i++ {
			seedTicket(t, tickets, client.ID, domain.TicketStatusInProgress, &name)
		}
	}

	ticket, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: "new issue", Description: "details",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.AssignedAgent == nil || *ticket.AssignedAgent != agentC.DisplayName() {
		t.Fatalf("expected assignment to %q, got %v", agentC.DisplayName(), ticket.AssignedAgent)
	}
}

func TestCreateTicketAllAgentsAtCapacity(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	agent := seedUser(t, users, "Alice", "Ashford", domain.RoleAgent)

	name := agent.DisplayName()
	for i := 0; i < 5; i++ {
		seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, &name)
	}

	ticket, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: "new issue", Description: "details",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.AssignedAgent != nil {
		t.Fatalf("expected unassigned ticket, got %q", *ticket.AssignedAgent)
	}
}

func TestCreateTicketNoAgents(t *testing.T) {
	svc, _, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	ticket, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: "help", Description: "details",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.AssignedAgent != nil {
		t.Fatalf("expected unassigned ticket, got %q", *ticket.AssignedAgent)
	}
}

func TestCreateTicketCountsOnlyActiveTickets(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	agent := seedUser(t, users, "Alice", "Ashford", domain.RoleAgent)

	name := agent.DisplayName()
	// Five closed or resolved tickets do not count against capacity.
	for i := 0; i < 3; i++ {
		seedTicket(t, tickets, client.ID, domain.TicketStatusClosed, &name)
	}
	for i := 0; i < 2; i++ {
		seedTicket(t, tickets, client.ID, domain.TicketStatusResolved, &name)
	}

	ticket, err := svc.CreateTicket(context.Background(), &domain.Ticket{
		UserID: client.ID, Subject: "help", Description: "details",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.AssignedAgent == nil || *ticket.AssignedAgent != name {
		t.Fatalf("expected assignment to %q, got %v", name, ticket.AssignedAgent)
	}
}

func TestUpdateTicketTransitionChecked(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	ticket := seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)

	bad := domain.TicketStatusResolved
	if _, err := svc.UpdateTicket(context.Background(), ticket.ID, TicketPatch{Status: &bad}); !apperrors.HasCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("expected ILLEGAL_STATE, got %v", err)
	}

	same := domain.TicketStatusOpen
	subject := "updated subject"
	updated, err := svc.UpdateTicket(context.Background(), ticket.ID, TicketPatch{Status: &same, Subject: &subject})
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if updated.Subject != subject || updated.Status != domain.TicketStatusOpen {
		t.Fatalf("unexpected ticket after update: %+v", updated)
	}
}

func TestAssignToAgent(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	open := seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)
	assigned, err := svc.AssignToAgent(context.Background(), open.ID, "Alice Ashford")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected IN_PROGRESS after assignment, got %s", assigned.Status)
	}
	if assigned.AssignedAgent == nil || *assigned.AssignedAgent != "Alice Ashford" {
		t.Fatalf("agent not set: %v", assigned.AssignedAgent)
	}

	closed := seedTicket(t, tickets, client.ID, domain.TicketStatusClosed, nil)
	if _, err := svc.AssignToAgent(context.Background(), closed.ID, "Alice Ashford"); !apperrors.HasCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("expected ILLEGAL_STATE for closed ticket, got %v", err)
	}
}

func TestResolveTicket(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	ticket := seedTicket(t, tickets, client.ID, domain.TicketStatusInProgress, nil)

	resolved, err := svc.ResolveTicket(context.Background(), ticket.ID, "replaced the cartridge")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Fatalf("expected RESOLVED, got %s", resolved.Status)
	}
	if !strings.Contains(resolved.Description, "[RESOLUTION] replaced the cartridge") {
		t.Fatalf("resolution not appended: %q", resolved.Description)
	}

	closed := seedTicket(t, tickets, client.ID, domain.TicketStatusClosed, nil)
	if _, err := svc.ResolveTicket(context.Background(), closed.ID, "x"); !apperrors.HasCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("expected ILLEGAL_STATE for closed ticket, got %v", err)
	}
}

func TestCloseTicketFromAnyState(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	for _, status := range []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	} {
		ticket := seedTicket(t, tickets, client.ID, status, nil)
		closed, err := svc.CloseTicket(context.Background(), ticket.ID)
		if err != nil {
			t.Fatalf("close from %s: %v", status, err)
		}
		if closed.Status != domain.TicketStatusClosed {
			t.Fatalf("close from %s: got %s", status, closed.Status)
		}
	}
}

func TestReopenTicket(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	closed := seedTicket(t, tickets, client.ID, domain.TicketStatusClosed, nil)
	reopened, err := svc.ReopenTicket(context.Background(), closed.ID)
	if err != nil {
		t.Fatalf("reopen closed: %v", err)
	}
	if reopened.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", reopened.Status)
	}

	open := seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)
	if _, err := svc.ReopenTicket(context.Background(), open.ID); !apperrors.HasCode(err, apperrors.CodeIllegalState) {
		t.Fatalf("expected ILLEGAL_STATE for open ticket, got %v", err)
	}
}

func TestGetTicketByIDNotFound(t *testing.T) {
	svc, _, _ := newTicketFixture(t)
	if _, err := svc.GetTicketByID(context.Background(), "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListActiveTickets(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)

	seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)
	seedTicket(t, tickets, client.ID, domain.TicketStatusInProgress, nil)
	seedTicket(t, tickets, client.ID, domain.TicketStatusResolved, nil)
	seedTicket(t, tickets, client.ID, domain.TicketStatusClosed, nil)

	active, err := svc.ListActiveTickets(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active tickets, got %d", len(active))
	}
	for _, ticket := range active {
		if !ticket.IsActive() {
			t.Fatalf("inactive ticket in result: %s", ticket.Status)
		}
	}
}

func TestCountTicketsByUserAndStatus(t *testing.T) {
	svc, tickets, users := newTicketFixture(t)
	client := seedUser(t, users, "Dana", "Client", domain.RoleClient)
	other := seedUser(t, users, "Omar", "Other", domain.RoleClient)

	seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)
	seedTicket(t, tickets, client.ID, domain.TicketStatusOpen, nil)
	seedTicket(t, tickets, other.ID, domain.TicketStatusOpen, nil)

	count, err := svc.CountTicketsByUserAndStatus(context.Background(), client.ID, domain.TicketStatusOpen)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
}
