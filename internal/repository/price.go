package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

const pricePhaseColumns = `id, base_price, target_price, trend, change_percentage,
	rising_duration_hours, falling_duration_hours, stable_duration_hours,
	stable_fluctuation_range, phase_started_at, phase_ends_at, created_at, updated_by`

type PriceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Append stores a new phase. Phases are never updated in place; the
// latest row supersedes all earlier ones.
func (r *PriceRepository) Append(ctx context.Context, p *domain.PricePhase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO price_phases (
			id, base_price, target_price, trend, change_percentage,
			rising_duration_hours, falling_duration_hours, stable_duration_hours,
			stable_fluctuation_range, phase_started_at, phase_ends_at, created_at, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.BasePrice, p.TargetPrice, p.Trend, p.ChangePercentage,
		p.RisingDurationHours, p.FallingDurationHours, p.StableDurationHours,
		p.StableFluctuationRange, p.PhaseStartedAt, p.PhaseEndsAt, p.CreatedAt, p.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// GetLatest returns the current phase, or domain.ErrNotFound before any
// phase has been configured.
func (r *PriceRepository) GetLatest(ctx context.Context) (*domain.PricePhase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pricePhaseColumns+` FROM price_phases
		 ORDER BY created_at DESC LIMIT 1`,
	)
	p, err := scanPricePhase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetLatest: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetLatest: %w", err)
	}
	return p, nil
}

func scanPricePhase(s scanner) (*domain.PricePhase, error) {
	var p domain.PricePhase
	err := s.Scan(
		&p.ID, &p.BasePrice, &p.TargetPrice, &p.Trend, &p.ChangePercentage,
		&p.RisingDurationHours, &p.FallingDurationHours, &p.StableDurationHours,
		&p.StableFluctuationRange, &p.PhaseStartedAt, &p.PhaseEndsAt, &p.CreatedAt, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
