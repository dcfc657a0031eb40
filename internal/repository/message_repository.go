package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-chat/internal/domain"
)

// ChatMessageRepository manages ticket conversation messages.
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error)
	ListByTicketSince(ctx context.Context, ticketID string, since time.Time) ([]domain.ChatMessage, error)
	ListBySender(ctx context.Context, senderID string) ([]domain.ChatMessage, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository builds repository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

const messageColumns = `id, ticket_id, kind, sender_id, content, sent_at`

func (r *chatMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (ticket_id, kind, sender_id, content, sent_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.Kind,
		msg.SenderID,
		msg.Content,
		msg.Timestamp,
	).Scan(&msg.ID)
}

func (r *chatMessageRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + ` FROM chat_messages WHERE id=$1`
	var msg domain.ChatMessage
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.Kind,
		&msg.SenderID,
		&msg.Content,
		&msg.Timestamp,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + `
        FROM chat_messages WHERE ticket_id=$1 ORDER BY sent_at ASC`
	return r.query(ctx, query, ticketID)
}

func (r *chatMessageRepository) ListByTicketSince(ctx context.Context, ticketID string, since time.Time) ([]domain.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + `
        FROM chat_messages WHERE ticket_id=$1 AND sent_at >= $2 ORDER BY sent_at ASC`
	return r.query(ctx, query, ticketID, since)
}

func (r *chatMessageRepository) ListBySender(ctx context.Context, senderID string) ([]domain.ChatMessage, error) {
	const query = `SELECT ` + messageColumns + `
        FROM chat_messages WHERE sender_id=$1 ORDER BY sent_at ASC`
	return r.query(ctx, query, senderID)
}

func (r *chatMessageRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM chat_messages WHERE ticket_id=$1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chatMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.Kind,
			&msg.SenderID,
			&msg.Content,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
