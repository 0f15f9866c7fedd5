package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

func (t Trend) IsValid() bool {
	switch t {
	case TrendRising, TrendFalling, TrendStable:
		return true
	default:
		return false
	}
}

// PricePhase is one time-bounded configuration of the simulated price
// curve. Phases are append-only; the current phase is the latest row by
// creation time and the live price is derived from it on every read,
// never stored.
type PricePhase struct {
	ID                     uuid.UUID
	BasePrice              decimal.Decimal
	TargetPrice            decimal.Decimal
	Trend                  Trend
	ChangePercentage       decimal.Decimal
	RisingDurationHours    decimal.Decimal
	FallingDurationHours   decimal.Decimal
	StableDurationHours    decimal.Decimal
	StableFluctuationRange decimal.Decimal // percent, e.g. 0.5 for +/-0.5%
	PhaseStartedAt         time.Time
	PhaseEndsAt            time.Time
	CreatedAt              time.Time
	UpdatedBy              *uuid.UUID
}

// DurationForTrend selects the configured phase duration matching the
// given trend.
func (p *PricePhase) DurationForTrend(t Trend) time.Duration {
	var hours decimal.Decimal
	switch t {
	case TrendRising:
		hours = p.RisingDurationHours
	case TrendFalling:
		hours = p.FallingDurationHours
	default:
		hours = p.StableDurationHours
	}
	h, _ := hours.Float64()
	return time.Duration(h * float64(time.Hour))
}
