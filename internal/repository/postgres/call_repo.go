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

// ErrTransitionConflict is returned by UpdateStatusFrom when the call's
// current status is outside the permitted source set, meaning a concurrent
// transition won the race.
var ErrTransitionConflict = errors.New("call status transition conflict")

// CallRepository handles call data operations
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new CallRepository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

const callColumns = `call_id, caller_id, receiver_id, kind, status,
	started_at, ended_at, duration, created_at, updated_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	call := &domain.Call{}
	err := row.Scan(
		&call.CallID,
		&call.CallerID,
		&call.ReceiverID,
		&call.Kind,
		&call.Status,
		&call.StartedAt,
		&call.EndedAt,
		&call.Duration,
		&call.CreatedAt,
		&call.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CallNotFoundError()
		}
		return nil, fmt.Errorf("failed to scan call: %w", err)
	}
	return call, nil
}

// Create inserts a new call record
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (call_id, caller_id, receiver_id, kind, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		call.CallID,
		call.CallerID,
		call.ReceiverID,
		call.Kind,
		call.Status,
	).Scan(&call.CreatedAt, &call.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`
	return scanCall(r.pool.QueryRow(ctx, query, callID))
}

// UpdateStatusFrom applies a guarded status transition: the row is updated
// only while its current status is one of from. Timestamps already set are
// never overwritten. Returns ErrTransitionConflict when the guard fails so
// racing transitions cannot both succeed.
func (r *CallRepository) UpdateStatusFrom(
	ctx context.Context,
	callID uuid.UUID,
	from []domain.CallStatus,
	to domain.CallStatus,
	startedAt, endedAt *time.Time,
	duration *int,
) (*domain.Call, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	query := `
		UPDATE calls
		SET status = $2,
		    started_at = COALESCE(started_at, $3),
		    ended_at = COALESCE(ended_at, $4),
		    duration = COALESCE(duration, $5),
		    updated_at = now()
		WHERE call_id = $1 AND status = ANY($6)
		RETURNING ` + callColumns

	call, err := scanCall(r.pool.QueryRow(ctx, query,
		callID, to, startedAt, endedAt, duration, fromStrs))
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeCallNotFound) {
			// Guard failed or the id is unknown; the caller re-reads to
			// distinguish the two.
			return nil, ErrTransitionConflict
		}
		return nil, err
	}

	return call, nil
}

// ListByParticipant returns calls where the user is caller or receiver,
// newest first
func (r *CallRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE caller_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// ListActive returns the user's calls currently in the answered status
func (r *CallRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE (caller_id = $1 OR receiver_id = $1) AND status = $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, domain.CallAnswered)
	if err != nil {
		return nil, fmt.Errorf("failed to list active calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}
