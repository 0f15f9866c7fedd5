// Package price derives the live KZC price from the current phase
// configuration. The price is an intentionally synthetic animation: it
// is computed on every read from the stored phase and the wall clock,
// never advanced by a background job, so there is no drift and nothing
// to schedule.
package price

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

// DefaultPrice is served before any phase has been configured.
var DefaultPrice = decimal.NewFromFloat(1.25)

// jitterPct is the multiplicative volatility applied around the trend
// line for rising and falling phases.
var jitterPct = decimal.NewFromFloat(0.02)

var hundred = decimal.NewFromInt(100)

type phaseRepo interface {
	Append(ctx context.Context, p *domain.PricePhase) error
	GetLatest(ctx context.Context) (*domain.PricePhase, error)
}

// LivePrice is the full read-side view of the simulator.
type LivePrice struct {
	Price            decimal.Decimal
	BasePrice        decimal.Decimal
	TargetPrice      decimal.Decimal
	Trend            domain.Trend
	ChangePercentage decimal.Decimal
	Progress         decimal.Decimal // 0..100
	HoursRemaining   int
	MinutesRemaining int
}

type Simulator struct {
	phases phaseRepo

	now  func() time.Time
	rand func() float64 // uniform [0,1)
}

func NewSimulator(phases phaseRepo) *Simulator {
	return &Simulator{
		phases: phases,
		now:    func() time.Time { return time.Now().UTC() },
		rand:   rand.Float64,
	}
}

// Current returns the live price. Two calls in the same instant may see
// different jittered values; only the trend line and the jitter bounds
// are deterministic.
func (s *Simulator) Current(ctx context.Context) (*LivePrice, error) {
	phase, err := s.phases.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &LivePrice{
				Price:            DefaultPrice,
				BasePrice:        DefaultPrice,
				TargetPrice:      DefaultPrice,
				Trend:            domain.TrendStable,
				ChangePercentage: decimal.Zero,
				Progress:         decimal.Zero,
			}, nil
		}
		return nil, fmt.Errorf("Current: %w", err)
	}

	now := s.now()
	current := s.priceAt(phase, now)

	remaining := phase.PhaseEndsAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return &LivePrice{
		Price:            current,
		BasePrice:        phase.BasePrice,
		TargetPrice:      phase.TargetPrice,
		Trend:            phase.Trend,
		ChangePercentage: current.Sub(phase.BasePrice).Div(phase.BasePrice).Mul(hundred),
		Progress:         progressAt(phase, now).Mul(hundred),
		HoursRemaining:   int(remaining / time.Hour),
		MinutesRemaining: int(remaining % time.Hour / time.Minute),
	}, nil
}

// priceAt applies per-read volatility around the deterministic trend
// line.
func (s *Simulator) priceAt(phase *domain.PricePhase, now time.Time) decimal.Decimal {
	// rand in [-1, 1)
	factor := decimal.NewFromFloat(s.rand()*2 - 1)

	switch phase.Trend {
	case domain.TrendStable:
		fluctuation := phase.BasePrice.Mul(phase.StableFluctuationRange).Div(hundred).Mul(factor)
		return phase.BasePrice.Add(fluctuation)
	default:
		trend := trendPriceAt(phase, now)
		return trend.Add(trend.Mul(jitterPct).Mul(factor))
	}
}

// trendPriceAt is the unjittered interpolated price. Directional trends
// freeze at the target once the phase window has elapsed; they never
// overshoot.
func trendPriceAt(phase *domain.PricePhase, now time.Time) decimal.Decimal {
	if phase.Trend == domain.TrendStable {
		return phase.BasePrice
	}
	progress := progressAt(phase, now)
	diff := phase.TargetPrice.Sub(phase.BasePrice)
	return phase.BasePrice.Add(diff.Mul(progress))
}

// progressAt is clamp((now - start) / (end - start), 0, 1).
func progressAt(phase *domain.PricePhase, now time.Time) decimal.Decimal {
	total := phase.PhaseEndsAt.Sub(phase.PhaseStartedAt)
	if total <= 0 {
		return decimal.NewFromInt(1)
	}
	elapsed := now.Sub(phase.PhaseStartedAt)
	ratio := decimal.NewFromFloat(elapsed.Seconds()).Div(decimal.NewFromFloat(total.Seconds()))
	if ratio.IsNegative() {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

type SetPhaseInput struct {
	BasePrice              decimal.Decimal
	TargetPrice            decimal.Decimal
	Trend                  domain.Trend
	RisingDurationHours    decimal.Decimal
	FallingDurationHours   decimal.Decimal
	StableDurationHours    decimal.Decimal
	StableFluctuationRange decimal.Decimal
	UpdatedBy              *uuid.UUID
}

// SetPhase appends a new phase superseding the current one. The change
// percentage is recorded against the previous phase's trend price at
// reconfiguration time, and the phase deadline is picked from the
// duration field matching the new trend.
func (s *Simulator) SetPhase(ctx context.Context, in SetPhaseInput) (*domain.PricePhase, error) {
	if !in.BasePrice.IsPositive() {
		return nil, fmt.Errorf("SetPhase: base price: %w", domain.ErrInvalidAmount)
	}
	if !in.Trend.IsValid() {
		return nil, fmt.Errorf("SetPhase: %q: %w", in.Trend, domain.ErrInvalidTrend)
	}

	now := s.now()

	change := decimal.Zero
	if prev, err := s.phases.GetLatest(ctx); err == nil {
		prevPrice := trendPriceAt(prev, now)
		change = in.BasePrice.Sub(prevPrice).Div(prevPrice).Mul(hundred)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("SetPhase: %w", err)
	}

	phase := &domain.PricePhase{
		ID:                     uuid.New(),
		BasePrice:              in.BasePrice,
		TargetPrice:            defaultDecimal(in.TargetPrice, in.BasePrice),
		Trend:                  in.Trend,
		ChangePercentage:       change,
		RisingDurationHours:    defaultDecimal(in.RisingDurationHours, decimal.NewFromInt(24)),
		FallingDurationHours:   defaultDecimal(in.FallingDurationHours, decimal.NewFromInt(24)),
		StableDurationHours:    defaultDecimal(in.StableDurationHours, decimal.NewFromInt(24)),
		StableFluctuationRange: defaultDecimal(in.StableFluctuationRange, decimal.NewFromFloat(0.5)),
		PhaseStartedAt:         now,
		CreatedAt:              now,
		UpdatedBy:              in.UpdatedBy,
	}
	phase.PhaseEndsAt = now.Add(phase.DurationForTrend(in.Trend))

	if err := s.phases.Append(ctx, phase); err != nil {
		return nil, fmt.Errorf("SetPhase: %w", err)
	}
	return phase, nil
}

func defaultDecimal(v, fallback decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return fallback
	}
	return v
}
