package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	UserID        string
	Subject       string
	Description   string
	Status        TicketStatus
	AssignedAgent *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the ticket is OPEN or IN_PROGRESS.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}
