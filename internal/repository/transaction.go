package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const transactionColumns = `id, hash, kind, sender_address, receiver_address,
	amount, fee, currency, status, note, created_at, held_at, held_by,
	reversed_at, reversed_by`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends an immutable log entry within the caller's transaction
// so the entry commits or rolls back together with the balance changes
// it describes.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, hash, kind, sender_address, receiver_address,
			amount, fee, currency, status, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Hash, t.Kind, t.SenderAddress, t.ReceiverAddress,
		t.Amount, t.Fee, t.Currency, t.Status, t.Note, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE hash = $1`, hash,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByHash: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByHash: %w", err)
	}
	return t, nil
}

// GetForUpdate locks the log entry row for an administrative status
// transition.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Transaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByAddress(ctx context.Context, address string, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE sender_address = $1 OR receiver_address = $1`,
		address,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAddress: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sender_address = $1 OR receiver_address = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		address, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAddress: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAddress: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAddress: rows: %w", err)
	}
	return txs, total, nil
}

// Hold marks a successful transaction held. The status guard makes the
// transition a no-op race loser if the entry was already held or
// reversed.
func (r *TransactionRepository) Hold(ctx context.Context, id uuid.UUID, heldBy string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $1, held_at = $2, held_by = $3
		 WHERE id = $4 AND status = $5`,
		domain.TransactionStatusHeld, now, heldBy, id, domain.TransactionStatusSuccess,
	)
	if err != nil {
		return fmt.Errorf("Hold: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Hold: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Hold: %w", domain.ErrTransactionFinal)
	}
	return nil
}

// MarkReversed flips a transaction to reversed inside the caller's
// transaction, guarded on the current status so a reversal is applied at
// most once.
func (r *TransactionRepository) MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID, reversedBy string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, reversed_at = $2, reversed_by = $3
		 WHERE id = $4 AND status <> $1`,
		domain.TransactionStatusReversed, now, reversedBy, id,
	)
	if err != nil {
		return fmt.Errorf("MarkReversed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkReversed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkReversed: %w", domain.ErrTransactionFinal)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.Scan(
		&t.ID, &t.Hash, &t.Kind, &t.SenderAddress, &t.ReceiverAddress,
		&t.Amount, &t.Fee, &t.Currency, &t.Status, &t.Note, &t.CreatedAt,
		&t.HeldAt, &t.HeldBy, &t.ReversedAt, &t.ReversedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
