package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/pkg/utils"
)

// Loan is a tracked debt with an ordered ledger of records. The first
// record is always the principal disbursement.
type Loan struct {
	ID            string                     `json:"id"`
	Memo          string                     `json:"memo"`
	Borrowers     []string                   `json:"borrowers"`
	Archived      bool                       `json:"archived"`
	InterestRate  decimal.Decimal            `json:"interest_rate"`
	Records       []Record                   `json:"records"`
	Attributes    map[string]json.RawMessage `json:"attributes,omitempty"`
	LastAccruedAt time.Time                  `json:"last_accrued_at"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// NewLoan builds an active loan whose ledger holds only the principal.
func NewLoan(memo string, borrowers []string, principal, interestRate decimal.Decimal, now time.Time) *Loan {
	now = now.UTC()
	return &Loan{
		ID:            uuid.NewString(),
		Memo:          memo,
		Borrowers:     borrowers,
		InterestRate:  interestRate,
		Records:       []Record{NewRecord(principal, RecordTypePrincipal, now)},
		LastAccruedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Balance is the outstanding amount: principal, interest and fees minus payments.
func (l *Loan) Balance() decimal.Decimal {
	balance := decimal.Zero
	for _, r := range l.Records {
		balance = balance.Add(r.Effect())
	}
	return balance
}

// Principal returns the amount of the first principal record.
func (l *Loan) Principal() decimal.Decimal {
	for _, r := range l.Records {
		if r.Type == RecordTypePrincipal {
			return r.Amount
		}
	}
	return decimal.Zero
}

// AddRecord appends r to the ledger and returns the stored copy.
func (l *Loan) AddRecord(r Record) Record {
	l.Records = append(l.Records, r)
	return l.Records[len(l.Records)-1]
}

// ChargeInterest charges interest for every whole period elapsed since the
// last accrual, compounding once per period on the running balance. Each
// positive charge is appended as an interest record stamped at the end of
// its period. It reports whether the loan changed and must be saved.
func (l *Loan) ChargeInterest(now time.Time, period time.Duration) bool {
	periods := utils.WholePeriods(l.LastAccruedAt, now, period)
	if periods == 0 {
		return false
	}

	periodRate := utils.PeriodicRate(l.InterestRate, period)

	balance := l.Balance()
	for i := int64(1); i <= periods; i++ {
		if !balance.IsPositive() || !periodRate.IsPositive() {
			break
		}

		interest := utils.RoundMoney(balance.Mul(periodRate))
		if !interest.IsPositive() {
			break
		}

		at := utils.PeriodEnd(l.LastAccruedAt, period, i)
		l.Records = append(l.Records, NewRecord(interest, RecordTypeInterest, at))
		balance = balance.Add(interest)
	}

	l.LastAccruedAt = utils.PeriodEnd(l.LastAccruedAt, period, periods)
	return true
}
