package price

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzclabs/kzc-wallet/internal/domain"
)

type fakePhaseRepo struct {
	latest   *domain.PricePhase
	appended []*domain.PricePhase
}

func (f *fakePhaseRepo) Append(_ context.Context, p *domain.PricePhase) error {
	f.appended = append(f.appended, p)
	f.latest = p
	return nil
}

func (f *fakePhaseRepo) GetLatest(_ context.Context) (*domain.PricePhase, error) {
	if f.latest == nil {
		return nil, domain.ErrNotFound
	}
	return f.latest, nil
}

func newTestSimulator(phase *domain.PricePhase, now time.Time, randVal float64) *Simulator {
	s := NewSimulator(&fakePhaseRepo{latest: phase})
	s.now = func() time.Time { return now }
	s.rand = func() float64 { return randVal }
	return s
}

func risingPhase(start time.Time, hours int) *domain.PricePhase {
	return &domain.PricePhase{
		ID:                     uuid.New(),
		BasePrice:              decimal.NewFromInt(1),
		TargetPrice:            decimal.NewFromInt(2),
		Trend:                  domain.TrendRising,
		RisingDurationHours:    decimal.NewFromInt(24),
		FallingDurationHours:   decimal.NewFromInt(24),
		StableDurationHours:    decimal.NewFromInt(24),
		StableFluctuationRange: decimal.NewFromFloat(0.5),
		PhaseStartedAt:         start,
		PhaseEndsAt:            start.Add(time.Duration(hours) * time.Hour),
		CreatedAt:              start,
	}
}

func TestCurrent_NoPhaseConfigured(t *testing.T) {
	s := NewSimulator(&fakePhaseRepo{})

	live, err := s.Current(context.Background())
	require.NoError(t, err)

	assert.True(t, live.Price.Equal(DefaultPrice), "price: got %s", live.Price)
	assert.Equal(t, domain.TrendStable, live.Trend)
	assert.True(t, live.ChangePercentage.IsZero())
}

func TestCurrent_RisingInterpolation(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	phase := risingPhase(start, 24)

	// rand = 0.5 makes the jitter factor zero, exposing the trend line.
	tests := []struct {
		name      string
		now       time.Time
		wantPrice string
	}{
		{"at phase start", start, "1"},
		{"halfway", start.Add(12 * time.Hour), "1.5"},
		{"at phase end", start.Add(24 * time.Hour), "2"},
		{"after phase end holds at target", start.Add(48 * time.Hour), "2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSimulator(phase, tc.now, 0.5)
			live, err := s.Current(context.Background())
			require.NoError(t, err)
			assert.True(t, live.Price.Equal(decimal.RequireFromString(tc.wantPrice)),
				"price: got %s, want %s", live.Price, tc.wantPrice)
		})
	}
}

func TestCurrent_FallingFreezesAtTarget(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	phase := risingPhase(start, 24)
	phase.Trend = domain.TrendFalling
	phase.BasePrice = decimal.NewFromInt(2)
	phase.TargetPrice = decimal.NewFromInt(1)

	s := newTestSimulator(phase, start.Add(72*time.Hour), 0.5)
	live, err := s.Current(context.Background())
	require.NoError(t, err)

	assert.True(t, live.Price.Equal(decimal.NewFromInt(1)), "price: got %s", live.Price)
	assert.True(t, live.Progress.Equal(decimal.NewFromInt(100)), "progress: got %s", live.Progress)
}

func TestCurrent_JitterStaysWithinBounds(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	phase := risingPhase(start, 24)
	now := start.Add(12 * time.Hour)
	trend := decimal.NewFromFloat(1.5)

	lo := trend.Mul(decimal.NewFromFloat(0.98))
	hi := trend.Mul(decimal.NewFromFloat(1.02))

	for _, rv := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 0.999} {
		s := newTestSimulator(phase, now, rv)
		live, err := s.Current(context.Background())
		require.NoError(t, err)
		assert.True(t, live.Price.GreaterThanOrEqual(lo) && live.Price.LessThanOrEqual(hi),
			"rand=%v: price %s outside [%s, %s]", rv, live.Price, lo, hi)
	}
}

func TestCurrent_StableFluctuationBounds(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	phase := risingPhase(start, 24)
	phase.Trend = domain.TrendStable
	phase.BasePrice = decimal.NewFromInt(1)
	phase.StableFluctuationRange = decimal.NewFromFloat(0.5)

	lo := decimal.NewFromFloat(0.995)
	hi := decimal.NewFromFloat(1.005)

	for _, rv := range []float64{0, 0.2, 0.5, 0.8, 0.999} {
		s := newTestSimulator(phase, start.Add(time.Hour), rv)
		live, err := s.Current(context.Background())
		require.NoError(t, err)
		assert.True(t, live.Price.GreaterThanOrEqual(lo) && live.Price.LessThanOrEqual(hi),
			"rand=%v: price %s outside [%s, %s]", rv, live.Price, lo, hi)
	}
}

func TestCurrent_ChangePercentageAndRemaining(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	phase := risingPhase(start, 24)

	s := newTestSimulator(phase, start.Add(18*time.Hour+30*time.Minute), 0.5)
	live, err := s.Current(context.Background())
	require.NoError(t, err)

	// trend price at 18.5h of 24h: 1 + 1*(18.5/24) = 1.7708...
	assert.True(t, live.ChangePercentage.GreaterThan(decimal.NewFromInt(77)))
	assert.True(t, live.ChangePercentage.LessThan(decimal.NewFromInt(78)))
	assert.Equal(t, 5, live.HoursRemaining)
	assert.Equal(t, 30, live.MinutesRemaining)
}

func TestSetPhase(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects invalid trend", func(t *testing.T) {
		s := newTestSimulator(nil, start, 0.5)
		_, err := s.SetPhase(context.Background(), SetPhaseInput{
			BasePrice: decimal.NewFromInt(1),
			Trend:     domain.Trend("sideways"),
		})
		require.ErrorIs(t, err, domain.ErrInvalidTrend)
	})

	t.Run("rejects non-positive base price", func(t *testing.T) {
		s := newTestSimulator(nil, start, 0.5)
		_, err := s.SetPhase(context.Background(), SetPhaseInput{
			BasePrice: decimal.Zero,
			Trend:     domain.TrendStable,
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("picks duration for the new trend", func(t *testing.T) {
		s := newTestSimulator(nil, start, 0.5)
		phase, err := s.SetPhase(context.Background(), SetPhaseInput{
			BasePrice:            decimal.NewFromInt(1),
			TargetPrice:          decimal.NewFromInt(2),
			Trend:                domain.TrendRising,
			RisingDurationHours:  decimal.NewFromInt(6),
			FallingDurationHours: decimal.NewFromInt(12),
		})
		require.NoError(t, err)
		assert.Equal(t, start.Add(6*time.Hour), phase.PhaseEndsAt)
		assert.True(t, phase.ChangePercentage.IsZero(), "no previous phase, change must be zero")
	})

	t.Run("change percentage relative to previous trend price", func(t *testing.T) {
		prev := risingPhase(start, 24) // 1.0 -> 2.0
		halfway := start.Add(12 * time.Hour)
		s := newTestSimulator(prev, halfway, 0.5)

		phase, err := s.SetPhase(context.Background(), SetPhaseInput{
			BasePrice: decimal.NewFromInt(3), // previous trend price here is 1.5
			Trend:     domain.TrendStable,
		})
		require.NoError(t, err)
		assert.True(t, phase.ChangePercentage.Equal(decimal.NewFromInt(100)),
			"change: got %s, want 100", phase.ChangePercentage)
		assert.Equal(t, halfway.Add(24*time.Hour), phase.PhaseEndsAt)
	})

	t.Run("target defaults to base", func(t *testing.T) {
		s := newTestSimulator(nil, start, 0.5)
		phase, err := s.SetPhase(context.Background(), SetPhaseInput{
			BasePrice: decimal.NewFromFloat(1.25),
			Trend:     domain.TrendStable,
		})
		require.NoError(t, err)
		assert.True(t, phase.TargetPrice.Equal(phase.BasePrice))
	})
}
