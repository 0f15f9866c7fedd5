package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const swapColumns = `id, user_id, from_currency, to_currency, from_amount,
	to_amount, rate, fee, transaction_id, created_at`

type SwapRepository struct {
	db *sql.DB
}

func NewSwapRepository(db *sql.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

func (r *SwapRepository) Create(ctx context.Context, tx *sql.Tx, s *domain.Swap) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO swaps (
			id, user_id, from_currency, to_currency, from_amount,
			to_amount, rate, fee, transaction_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.FromCurrency, s.ToCurrency, s.FromAmount,
		s.ToAmount, s.Rate, s.Fee, s.TransactionID, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *SwapRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Swap, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+swapColumns+` FROM swaps
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var swaps []domain.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		swaps = append(swaps, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return swaps, nil
}

func scanSwap(s scanner) (*domain.Swap, error) {
	var sw domain.Swap
	err := s.Scan(
		&sw.ID, &sw.UserID, &sw.FromCurrency, &sw.ToCurrency, &sw.FromAmount,
		&sw.ToAmount, &sw.Rate, &sw.Fee, &sw.TransactionID, &sw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sw, nil
}
