package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"homelink-backend/internal/domain"
	apperrors "homelink-backend/pkg/errors"
)

// InvitationCodeRepository handles invitation code storage
type InvitationCodeRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationCodeRepository creates a new InvitationCodeRepository
func NewInvitationCodeRepository(pool *pgxpool.Pool) *InvitationCodeRepository {
	return &InvitationCodeRepository{pool: pool}
}

// Get retrieves an invitation code
func (r *InvitationCodeRepository) Get(ctx context.Context, code string) (*domain.InvitationCode, error) {
	query := `
		SELECT code, used_by, used_at, created_at
		FROM invitation_codes
		WHERE code = $1
	`

	invite := &domain.InvitationCode{}
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&invite.Code,
		&invite.UsedBy,
		&invite.UsedAt,
		&invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundError("Invitation code")
		}
		return nil, fmt.Errorf("failed to get invitation code: %w", err)
	}

	return invite, nil
}

// EnsureSeed inserts the given code if it does not exist yet
func (r *InvitationCodeRepository) EnsureSeed(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invitation_codes (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`, code)
	if err != nil {
		return fmt.Errorf("failed to seed invitation code: %w", err)
	}
	return nil
}

// MarkUsed records the most recent use of a code. The universal code stays
// reusable; this is bookkeeping, not consumption.
func (r *InvitationCodeRepository) MarkUsed(ctx context.Context, code string, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE invitation_codes SET used_by = $2, used_at = $3 WHERE code = $1`,
		code, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark invitation code used: %w", err)
	}
	return nil
}
