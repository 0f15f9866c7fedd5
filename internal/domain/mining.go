package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MiningStatus string

const (
	MiningStatusActive    MiningStatus = "active"
	MiningStatusCompleted MiningStatus = "completed"
)

// MiningSession is a timed claim-eligibility window. The reward is
// snapshotted from settings at start time and never recomputed.
type MiningSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StartedAt time.Time
	EndsAt    time.Time
	Reward    decimal.Decimal
	Status    MiningStatus
	Claimed   bool
	ClaimedAt *time.Time
}

// MiningProgress is the lazily computed view of an active session.
// Nothing advances session state on a clock; progress is derived from
// the stored timestamps at read time.
type MiningProgress struct {
	Session       *MiningSession
	Progress      decimal.Decimal // 0..100
	CurrentReward decimal.Decimal // proportional, clamped to Reward
	TotalReward   decimal.Decimal
	IsComplete    bool
}

// ProgressAt derives the proportional state of the session at the given
// instant.
func (m *MiningSession) ProgressAt(now time.Time) MiningProgress {
	total := m.EndsAt.Sub(m.StartedAt)
	elapsed := now.Sub(m.StartedAt)

	ratio := decimal.Zero
	if total > 0 {
		ratio = decimal.NewFromFloat(elapsed.Seconds()).Div(decimal.NewFromFloat(total.Seconds()))
	}
	if ratio.IsNegative() {
		ratio = decimal.Zero
	}
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}

	return MiningProgress{
		Session:       m,
		Progress:      ratio.Mul(decimal.NewFromInt(100)),
		CurrentReward: m.Reward.Mul(ratio),
		TotalReward:   m.Reward,
		IsComplete:    !now.Before(m.EndsAt),
	}
}
