package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const miningColumns = `id, user_id, started_at, ends_at, reward, status, claimed, claimed_at`

type MiningRepository struct {
	db *sql.DB
}

func NewMiningRepository(db *sql.DB) *MiningRepository {
	return &MiningRepository{db: db}
}

// Create inserts a new active session. The partial unique index on
// (user_id) WHERE status = 'active' makes "no existing active session"
// part of the same atomic step, so two concurrent starts cannot both
// succeed.
func (r *MiningRepository) Create(ctx context.Context, m *domain.MiningSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mining_sessions (id, user_id, started_at, ends_at, reward, status, claimed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.UserID, m.StartedAt, m.EndsAt, m.Reward, m.Status, m.Claimed,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Create: %w", domain.ErrActiveSessionExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MiningRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+miningColumns+` FROM mining_sessions
		 WHERE user_id = $1 AND status = $2`,
		userID, domain.MiningStatusActive,
	)
	m, err := scanMiningSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveByUser: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetActiveByUser: %w", err)
	}
	return m, nil
}

// ClaimActive transitions the user's active unclaimed session to
// completed+claimed within the caller's transaction. The conditional
// predicate serializes concurrent claims: exactly one caller observes a
// row, everyone else gets ErrAlreadyClaimed or ErrNoActiveSession.
func (r *MiningRepository) ClaimActive(ctx context.Context, tx *sql.Tx, userID uuid.UUID, now time.Time) (*domain.MiningSession, error) {
	row := tx.QueryRowContext(ctx,
		`UPDATE mining_sessions
		 SET status = $1, claimed = TRUE, claimed_at = $2
		 WHERE user_id = $3 AND status = $4 AND claimed = FALSE
		 RETURNING `+miningColumns,
		domain.MiningStatusCompleted, now, userID, domain.MiningStatusActive,
	)
	m, err := scanMiningSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ClaimActive: %w", domain.ErrNoActiveSession)
		}
		return nil, fmt.Errorf("ClaimActive: %w", err)
	}
	return m, nil
}

func (r *MiningRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.MiningSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+miningColumns+` FROM mining_sessions
		 WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var sessions []domain.MiningSession
	for rows.Next() {
		m, err := scanMiningSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		sessions = append(sessions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return sessions, nil
}

func scanMiningSession(s scanner) (*domain.MiningSession, error) {
	var m domain.MiningSession
	err := s.Scan(
		&m.ID, &m.UserID, &m.StartedAt, &m.EndsAt, &m.Reward,
		&m.Status, &m.Claimed, &m.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
