package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetLatest returns the current settings snapshot. Settings rows are
// append-only; the latest row wins.
func (r *SettingsRepository) GetLatest(ctx context.Context) (*domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT transfer_fee, swap_enabled, swap_fee, min_swap_amount,
			mining_enabled, mining_reward_rate, mining_session_duration_hours,
			referral_enabled, referral_bonus, created_at
		 FROM settings ORDER BY created_at DESC LIMIT 1`,
	)

	var s domain.Settings
	err := row.Scan(
		&s.TransferFee, &s.SwapEnabled, &s.SwapFee, &s.MinSwapAmount,
		&s.MiningEnabled, &s.MiningRewardRate, &s.MiningSessionDurationHours,
		&s.ReferralEnabled, &s.ReferralBonus, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetLatest: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetLatest: %w", err)
	}
	return &s, nil
}

// Append stores a new settings snapshot superseding the previous one.
func (r *SettingsRepository) Append(ctx context.Context, s *domain.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (
			id, transfer_fee, swap_enabled, swap_fee, min_swap_amount,
			mining_enabled, mining_reward_rate, mining_session_duration_hours,
			referral_enabled, referral_bonus, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(), s.TransferFee, s.SwapEnabled, s.SwapFee, s.MinSwapAmount,
		s.MiningEnabled, s.MiningRewardRate, s.MiningSessionDurationHours,
		s.ReferralEnabled, s.ReferralBonus, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}
