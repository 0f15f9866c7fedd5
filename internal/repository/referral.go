package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const referralColumns = `id, referrer_id, referred_id, bonus_amount, status, created_at, completed_at`

type ReferralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) Create(ctx context.Context, ref *domain.Referral) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO referrals (id, referrer_id, referred_id, bonus_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ref.ID, ref.ReferrerID, ref.ReferredID, ref.BonusAmount, ref.Status, ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ReferralRepository) GetPendingByReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+referralColumns+` FROM referrals
		 WHERE referred_id = $1 AND status = $2`,
		referredID, domain.ReferralStatusPending,
	)
	ref, err := scanReferral(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetPendingByReferred: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetPendingByReferred: %w", err)
	}
	return ref, nil
}

// CompletePending latches the referral from pending to completed within
// the caller's transaction. The status predicate makes re-delivery of
// the approval event a race loser: only one caller ever sees a row.
func (r *ReferralRepository) CompletePending(ctx context.Context, tx *sql.Tx, referredID uuid.UUID, bonus decimal.Decimal, now time.Time) (*domain.Referral, error) {
	row := tx.QueryRowContext(ctx,
		`UPDATE referrals
		 SET status = $1, bonus_amount = $2, completed_at = $3
		 WHERE referred_id = $4 AND status = $5
		 RETURNING `+referralColumns,
		domain.ReferralStatusCompleted, bonus, now, referredID, domain.ReferralStatusPending,
	)
	ref, err := scanReferral(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("CompletePending: %w", domain.ErrReferralCompleted)
		}
		return nil, fmt.Errorf("CompletePending: %w", err)
	}
	return ref, nil
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]domain.Referral, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+referralColumns+` FROM referrals
		 WHERE referrer_id = $1 ORDER BY created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByReferrer: %w", err)
	}
	defer rows.Close()

	var refs []domain.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByReferrer: scan: %w", err)
		}
		refs = append(refs, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByReferrer: rows: %w", err)
	}
	return refs, nil
}

func scanReferral(s scanner) (*domain.Referral, error) {
	var ref domain.Referral
	err := s.Scan(
		&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.BonusAmount,
		&ref.Status, &ref.CreatedAt, &ref.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
