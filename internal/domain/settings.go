package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the platform configuration snapshot the engines read.
// Rows are append-only and the current snapshot is the latest by
// creation time, so concurrent readers never observe a half-written
// update.
type Settings struct {
	TransferFee                 decimal.Decimal
	SwapEnabled                 bool
	SwapFee                     decimal.Decimal // fraction, e.g. 0.01
	MinSwapAmount               decimal.Decimal
	MiningEnabled               bool
	MiningRewardRate            decimal.Decimal
	MiningSessionDurationHours  decimal.Decimal
	ReferralEnabled             bool
	ReferralBonus               decimal.Decimal
	CreatedAt                   time.Time
}

// MiningSessionDuration converts the configured hours to a duration.
func (s *Settings) MiningSessionDuration() time.Duration {
	h, _ := s.MiningSessionDurationHours.Float64()
	return time.Duration(h * float64(time.Hour))
}
