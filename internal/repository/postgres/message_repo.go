package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"homelink-backend/internal/domain"
)

// MessageRepository handles message data operations
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create persists a message
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (message_id, chat_id, sender_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		msg.MessageID, msg.ChatID, msg.SenderID, msg.Content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByChat returns messages of a chat, newest first, with sender usernames
// joined in
func (r *MessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.message_id, m.chat_id, m.sender_id, u.username, m.content, m.created_at
		 FROM messages m
		 JOIN users u ON u.user_id = m.sender_id
		 WHERE m.chat_id = $1
		 ORDER BY m.created_at DESC
		 LIMIT $2 OFFSET $3`,
		chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		err := rows.Scan(
			&msg.MessageID,
			&msg.ChatID,
			&msg.SenderID,
			&msg.SenderUsername,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// LastByChat returns the newest message of a chat, or nil when the chat is
// empty
func (r *MessageRepository) LastByChat(ctx context.Context, chatID uuid.UUID) (*domain.Message, error) {
	messages, err := r.ListByChat(ctx, chatID, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}
