package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProgressAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	session := MiningSession{
		StartedAt: start,
		EndsAt:    start.Add(24 * time.Hour),
		Reward:    decimal.NewFromInt(10),
		Status:    MiningStatusActive,
	}

	tests := []struct {
		name         string
		at           time.Time
		wantProgress string
		wantReward   string
		wantComplete bool
	}{
		{"at start", start, "0", "0", false},
		{"quarter", start.Add(6 * time.Hour), "25", "2.5", false},
		{"half", start.Add(12 * time.Hour), "50", "5", false},
		{"at end", start.Add(24 * time.Hour), "100", "10", true},
		{"past end clamps", start.Add(48 * time.Hour), "100", "10", true},
		{"before start clamps", start.Add(-time.Hour), "0", "0", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := session.ProgressAt(tc.at)
			assert.True(t, p.Progress.Equal(decimal.RequireFromString(tc.wantProgress)),
				"progress = %s, want %s", p.Progress, tc.wantProgress)
			assert.True(t, p.CurrentReward.Equal(decimal.RequireFromString(tc.wantReward)),
				"current reward = %s, want %s", p.CurrentReward, tc.wantReward)
			assert.Equal(t, tc.wantComplete, p.IsComplete)
			assert.True(t, p.TotalReward.Equal(session.Reward))
		})
	}
}

func TestProgressAt_ZeroDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	session := MiningSession{
		StartedAt: start,
		EndsAt:    start,
		Reward:    decimal.NewFromInt(10),
	}

	p := session.ProgressAt(start)
	assert.True(t, p.IsComplete)
	assert.True(t, p.Progress.IsZero())
}
