package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ActivityTypeLoan = "loan"

// Activity is a feed entry summarizing a financial event. It references
// loans by id only and outlives them independently.
type Activity struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Members   []string        `json:"members"`
	Loans     []string        `json:"loans"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewLoanActivity builds the feed entry emitted when loan is created.
func NewLoanActivity(loan *Loan, principal decimal.Decimal) *Activity {
	members := make([]string, len(loan.Borrowers))
	copy(members, loan.Borrowers)

	return &Activity{
		ID:        uuid.NewString(),
		Type:      ActivityTypeLoan,
		Members:   members,
		Loans:     []string{loan.ID},
		Amount:    principal,
		Memo:      loan.Memo,
		CreatedAt: loan.CreatedAt,
	}
}
