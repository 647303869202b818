package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Accrual charges interest on stored loans. It needs nothing but the loan
// store, so the scheduler runs it without the request-side collaborators.
type Accrual struct {
	loans  repository.LoanRepository
	period time.Duration
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewAccrual(loans repository.LoanRepository, period time.Duration, logger *zap.Logger) *Accrual {
	return &Accrual{
		loans:  loans,
		period: period,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// Load fetches a loan and persists any interest due before returning it.
// The save is last-writer-wins like every request-side write.
func (a *Accrual) Load(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := a.get(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.ChargeInterest(a.now(), a.period) {
		if err := saveLoan(ctx, a.loans, loan); err != nil {
			return nil, err
		}
	}

	return loan, nil
}

// AccrueAll charges interest on every active loan and returns how many
// loans changed. A loan written by someone else since it was read is left
// for the next run; any other failure is logged and skipped too.
func (a *Accrual) AccrueAll(ctx context.Context) (updated int, err error) {
	ctx, span := a.tracer.Start(ctx, "Accrual.AccrueAll")
	defer func() { endSpan(span, err) }()

	ids, err := a.loans.ListActiveIDs(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		changed, err := a.accrueOne(ctx, id)
		if err != nil {
			a.logger.Error("interest accrual failed", zap.String("loan_id", id), zap.Error(err))
			continue
		}
		if changed {
			updated++
		}
	}

	span.SetAttributes(attribute.Int("loans.updated", updated), attribute.Int("loans.scanned", len(ids)))
	return updated, nil
}

func (a *Accrual) accrueOne(ctx context.Context, loanID string) (bool, error) {
	loan, err := a.get(ctx, loanID)
	if err != nil {
		return false, err
	}

	loadedAt := loan.UpdatedAt
	if !loan.ChargeInterest(a.now(), a.period) {
		return false, nil
	}

	err = a.loans.UpdateIfUnmodified(ctx, loan, loadedAt)
	if errors.Is(err, customError.ErrLoanConflict) {
		a.logger.Info("loan changed during accrual, skipped", zap.String("loan_id", loanID))
		return false, nil
	}
	if err != nil {
		return false, customError.WrapDatabaseError(err)
	}

	return true, nil
}

func (a *Accrual) get(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := a.loans.GetByID(ctx, loanID)
	if errors.Is(err, customError.ErrLoanNotFound) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func saveLoan(ctx context.Context, loans repository.LoanRepository, loan *domain.Loan) error {
	err := loans.Update(ctx, loan)
	if errors.Is(err, customError.ErrLoanNotFound) {
		return customError.WrapLoanNotFound(loan.ID)
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}
