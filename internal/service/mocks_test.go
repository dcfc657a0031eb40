package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-chat/internal/domain"
)

// memUserRepo is an in-memory repository.UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		r.seq++
		user.ID = "user-" + strconv.Itoa(r.seq)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	all, _ := r.List(context.Background())
	out := make([]domain.User, 0, len(all))
	for _, user := range all {
		if user.Role == role {
			out = append(out, user)
		}
	}
	return out, nil
}

// memTicketRepo is an in-memory repository.TicketRepository.
type memTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket

	updateErr error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		r.seq++
		ticket.ID = "ticket-" + strconv.Itoa(r.seq)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *memTicketRepo) List(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.UserID == userID })
}

func (r *memTicketRepo) ListByAgent(_ context.Context, agentName string) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.AssignedAgent != nil && *t.AssignedAgent == agentName
	})
}

func (r *memTicketRepo) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.Status == status })
}

func (r *memTicketRepo) ListByUserAndStatus(_ context.Context, userID string, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.UserID == userID && t.Status == status })
}

func (r *memTicketRepo) filter(keep func(domain.Ticket) bool) ([]domain.Ticket, error) {
	all, _ := r.List(context.Background())
	out := make([]domain.Ticket, 0, len(all))
	for _, ticket := range all {
		if keep(ticket) {
			out = append(out, ticket)
		}
	}
	return out, nil
}

// memMessageRepo is an in-memory repository.ChatMessageRepository that
// preserves insertion order per ticket.
type memMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages []domain.ChatMessage

	createErr error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{}
}

func (r *memMessageRepo) Create(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	msg.ID = "msg-" + strconv.Itoa(r.seq)
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id string) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			m := msg
			return &m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ChatMessage, error) {
	return r.filter(func(m domain.ChatMessage) bool { return m.TicketID == ticketID })
}

func (r *memMessageRepo) ListByTicketSince(_ context.Context, ticketID string, since time.Time) ([]domain.ChatMessage, error) {
	return r.filter(func(m domain.ChatMessage) bool {
		return m.TicketID == ticketID && !m.Timestamp.Before(since)
	})
}

func (r *memMessageRepo) ListBySender(_ context.Context, senderID string) ([]domain.ChatMessage, error) {
	return r.filter(func(m domain.ChatMessage) bool {
		return m.SenderID != nil && *m.SenderID == senderID
	})
}

func (r *memMessageRepo) CountByTicket(_ context.Context, ticketID string) (int64, error) {
	msgs, _ := r.ListByTicket(context.Background(), ticketID)
	return int64(len(msgs)), nil
}

func (r *memMessageRepo) filter(keep func(domain.ChatMessage) bool) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChatMessage, 0, len(r.messages))
	for _, msg := range r.messages {
		if keep(msg) {
			out = append(out, msg)
		}
	}
	return out, nil
}

// capturePublisher records every publish for assertions.
type capturePublisher struct {
	mu       sync.Mutex
	captured []capturedPublish
	err      error
}

type capturedPublish struct {
	Channel string
	Payload any
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.captured = append(p.captured, capturedPublish{Channel: channel, Payload: payload})
	return nil
}

func (p *capturePublisher) channels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.captured))
	for _, c := range p.captured {
		out = append(out, c.Channel)
	}
	return out
}
