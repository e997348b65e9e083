package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
)

// ChatRepository handles chat and participant data operations
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

const chatColumns = `chat_id, chat_type, name, created_by, created_at, updated_at`

func scanChat(row pgx.Row) (*domain.Chat, error) {
	chat := &domain.Chat{}
	err := row.Scan(
		&chat.ChatID,
		&chat.Type,
		&chat.Name,
		&chat.CreatedBy,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ChatNotFoundError()
		}
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}
	return chat, nil
}

// Create inserts a chat and its participant rows in one transaction
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat, participantIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO chats (chat_id, chat_type, name, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		chat.ChatID, chat.Type, chat.Name, chat.CreatedBy,
	).Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	for _, userID := range participantIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)`,
			chat.ChatID, userID); err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a chat by ID
func (r *ChatRepository) GetByID(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE chat_id = $1`
	return scanChat(r.pool.QueryRow(ctx, query, chatID))
}

// GetParticipantIDs returns the ids of all participants of a chat
func (r *ChatRepository) GetParticipantIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM chat_participants WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetParticipants returns participants with their public user fields
func (r *ChatRepository) GetParticipants(ctx context.Context, chatID uuid.UUID) ([]*domain.UserResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.user_id, u.username, u.created_at
		 FROM chat_participants cp
		 JOIN users u ON u.user_id = cp.user_id
		 WHERE cp.chat_id = $1
		 ORDER BY u.username`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var users []*domain.UserResponse
	for rows.Next() {
		u := &domain.UserResponse{}
		if err := rows.Scan(&u.UserID, &u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// IsParticipant reports whether the user belongs to the chat
func (r *ChatRepository) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

// FindPrivateChatBetween finds the unique 1:1 chat whose participant set is
// exactly {userA, userB}. Returns ChatNotFound when none exists.
func (r *ChatRepository) FindPrivateChatBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT ` + prefixedChatColumns("c") + `
		FROM chats c
		JOIN chat_participants pa ON pa.chat_id = c.chat_id AND pa.user_id = $1
		JOIN chat_participants pb ON pb.chat_id = c.chat_id AND pb.user_id = $2
		WHERE c.chat_type = $3
		  AND (SELECT COUNT(*) FROM chat_participants p WHERE p.chat_id = c.chat_id) = 2
		LIMIT 1
	`
	return scanChat(r.pool.QueryRow(ctx, query, userA, userB, domain.ChatTypePrivate))
}

// ListByUser returns every chat the user participates in, most recently
// updated first
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Chat, error) {
	query := `
		SELECT ` + prefixedChatColumns("c") + `
		FROM chats c
		JOIN chat_participants cp ON cp.chat_id = c.chat_id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// UnreadCount counts messages in a chat that arrived after the user's read
// receipt and were sent by somebody else
func (r *ChatRepository) UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 JOIN chat_participants cp ON cp.chat_id = m.chat_id AND cp.user_id = $2
		 WHERE m.chat_id = $1
		   AND m.sender_id <> $2
		   AND (cp.last_read_at IS NULL OR m.created_at > cp.last_read_at)`,
		chatID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkRead stamps the user's read receipt for the chat with the current time
func (r *ChatRepository) MarkRead(ctx context.Context, chatID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_participants SET last_read_at = now() WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark chat read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ChatNotFoundError()
	}
	return nil
}

// Delete removes a chat with its messages and participant rows atomically:
// all rows go, or none do
func (r *ChatRepository) Delete(ctx context.Context, chatID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_participants WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM chats WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ChatNotFoundError()
	}

	return tx.Commit(ctx)
}

// Touch bumps the chat's updated_at so it sorts to the top of listings
func (r *ChatRepository) Touch(ctx context.Context, chatID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chats SET updated_at = now() WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

func prefixedChatColumns(alias string) string {
	return alias + `.chat_id, ` + alias + `.chat_type, ` + alias + `.name, ` +
		alias + `.created_by, ` + alias + `.created_at, ` + alias + `.updated_at`
}
