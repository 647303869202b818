package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPeriodicRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     decimal.Decimal
		period   time.Duration
		expected decimal.Decimal
	}{
		{
			name:     "full year",
			rate:     decimal.RequireFromString("0.10"),
			period:   365 * 24 * time.Hour,
			expected: decimal.RequireFromString("0.10"),
		},
		{
			name:     "73 days is a fifth of a year",
			rate:     decimal.RequireFromString("0.10"),
			period:   73 * 24 * time.Hour,
			expected: decimal.RequireFromString("0.02"),
		},
		{
			name:     "zero interest rate",
			rate:     decimal.Zero,
			period:   24 * time.Hour,
			expected: decimal.Zero,
		},
		{
			name:     "no period",
			rate:     decimal.RequireFromString("0.10"),
			period:   0,
			expected: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PeriodicRate(tt.rate, tt.period)
			assert.True(t, result.Equal(tt.expected),
				"Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestWholePeriods(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name     string
		to       time.Time
		period   time.Duration
		expected int64
	}{
		{name: "same instant", to: base, period: day, expected: 0},
		{name: "partial period", to: base.Add(23 * time.Hour), period: day, expected: 0},
		{name: "exactly one period", to: base.Add(day), period: day, expected: 1},
		{name: "partial trailing period", to: base.Add(3*day + time.Hour), period: day, expected: 3},
		{name: "clock went backwards", to: base.Add(-day), period: day, expected: 0},
		{name: "zero period", to: base.Add(day), period: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WholePeriods(base, tt.to, tt.period))
		})
	}
}

func TestPeriodEnd(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, base, PeriodEnd(base, time.Hour, 0))
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), PeriodEnd(base, 24*time.Hour, 7))
}

func TestRoundMoney(t *testing.T) {
	assert.True(t, RoundMoney(decimal.RequireFromString("0.27397")).Equal(decimal.RequireFromString("0.27")))
	assert.True(t, RoundMoney(decimal.RequireFromString("0.275")).Equal(decimal.RequireFromString("0.28")))
}
