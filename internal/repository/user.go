package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const userColumns = `id, email, username, phone, password_hash, wallet_address,
	wallet_pin_hash, role, status, restrictions, kyc_status, referral_code,
	referred_by, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (
			id, email, username, phone, password_hash, wallet_address,
			wallet_pin_hash, role, status, restrictions, kyc_status, referral_code,
			referred_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.ID, u.Email, u.Username, u.Phone, u.PasswordHash, u.WalletAddress,
		u.WalletPINHash, u.Role, u.Status, featuresToArray(u.Restrictions),
		u.KYCStatus, u.ReferralCode, u.ReferredBy, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByWalletAddress(ctx context.Context, address string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, address,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByWalletAddress: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByWalletAddress: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUsername: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUsername: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReferralCode: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReferralCode: %w", err)
	}
	return u, nil
}

// ListActiveIDs returns the ids of every non-banned user, used by the
// administrative bulk distribution.
func (r *UserRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE status <> $1 ORDER BY created_at`,
		domain.UserStatusBanned,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActiveIDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListActiveIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActiveIDs: rows: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) SetWalletPIN(ctx context.Context, id uuid.UUID, pinHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET wallet_pin_hash = $1 WHERE id = $2`, pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("SetWalletPIN: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetWalletPIN: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetWalletPIN: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) SetKYCStatus(ctx context.Context, id uuid.UUID, status domain.KYCStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET kyc_status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("SetKYCStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetKYCStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetKYCStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func featuresToArray(fs []domain.Feature) pq.StringArray {
	arr := make(pq.StringArray, len(fs))
	for i, f := range fs {
		arr[i] = string(f)
	}
	return arr
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var restrictions pq.StringArray
	err := s.Scan(
		&u.ID, &u.Email, &u.Username, &u.Phone, &u.PasswordHash, &u.WalletAddress,
		&u.WalletPINHash, &u.Role, &u.Status, &restrictions, &u.KYCStatus,
		&u.ReferralCode, &u.ReferredBy, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range restrictions {
		f := domain.Feature(r)
		if f.IsValid() {
			u.Restrictions = append(u.Restrictions, f)
		}
	}
	return &u, nil
}
