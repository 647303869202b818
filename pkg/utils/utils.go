package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

const daysPerYear = 365

var year = decimal.NewFromInt(int64(daysPerYear * 24 * time.Hour))

// PeriodicRate scales an annual rate down to one accrual period
// Formula: annualRate * period / 365 days
func PeriodicRate(annualRate decimal.Decimal, period time.Duration) decimal.Decimal {
	if period <= 0 {
		return decimal.Zero
	}
	return annualRate.Mul(decimal.NewFromInt(int64(period))).Div(year)
}

// WholePeriods counts the complete periods between from and to.
// A partial trailing period is not counted.
func WholePeriods(from, to time.Time, period time.Duration) int64 {
	if period <= 0 || !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / period)
}

// PeriodEnd returns the end of the n-th period after start
func PeriodEnd(start time.Time, period time.Duration, n int64) time.Time {
	return start.Add(time.Duration(n) * period)
}

// RoundMoney rounds an amount to cents
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
