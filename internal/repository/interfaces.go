package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// MemberRepository defines the interface for member lookups
type MemberRepository interface {
	// GetByUsername retrieves a member by username; ErrMemberNotFound when absent
	GetByUsername(ctx context.Context, username string) (*domain.Member, error)

	// GetByToken retrieves the member owning a bearer token; ErrMemberNotFound when absent
	GetByToken(ctx context.Context, token string) (*domain.Member, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create stores a new loan together with its activity feed entry in one
	// transaction; neither row exists if either insert fails
	Create(ctx context.Context, loan *domain.Loan, activity *domain.Activity) error

	// GetByID retrieves a loan with its records; ErrLoanNotFound when absent
	GetByID(ctx context.Context, id string) (*domain.Loan, error)

	// Update saves the whole loan, records included. Last writer wins.
	Update(ctx context.Context, loan *domain.Loan) error

	// UpdateIfUnmodified saves the loan only while its stored updated_at still
	// equals loadedAt; ErrLoanConflict otherwise, including when it is gone
	UpdateIfUnmodified(ctx context.Context, loan *domain.Loan, loadedAt time.Time) error

	// ListActiveIDs returns the ids of loans that are not archived, oldest first
	ListActiveIDs(ctx context.Context) ([]string, error)
}
