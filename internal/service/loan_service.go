package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

const tracerName = "github.com/segyhp/loan-ledger/internal/service"

type LoanService struct {
	LoanRepo  repository.LoanRepository
	accrual   *Accrual
	directory *Directory
	feed      *ActivityFeed
	config    *config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	directory *Directory,
	feed *ActivityFeed,
	config *config.Config,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		LoanRepo:  loanRepo,
		accrual:   NewAccrual(loanRepo, config.Business.AccrualPeriod, logger),
		directory: directory,
		feed:      feed,
		config:    config,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}

// CreateLoan resolves the borrowers, stores a loan holding only the
// principal record together with its activity feed entry, then announces
// the entry.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (loan *domain.Loan, err error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.CreateLoan")
	defer func() { endSpan(span, err) }()

	if request.Memo == "" {
		return nil, customError.WrapInvalidMemo()
	}
	if request.Principal.IsZero() {
		return nil, customError.WrapInvalidPrincipal()
	}

	borrowers, err := s.directory.ResolveIDs(ctx, request.Borrowers)
	if err != nil {
		return nil, err
	}

	rate := s.config.GetDefaultInterestRate()
	if request.InterestRate != nil {
		rate = *request.InterestRate
	}

	loan = domain.NewLoan(request.Memo, borrowers, request.Principal, rate, s.now())
	loan.Archived = request.Archived
	loan.Attributes = request.Extra
	span.SetAttributes(attribute.String("loan.id", loan.ID))

	activity := domain.NewLoanActivity(loan, request.Principal)
	if err = s.LoanRepo.Create(ctx, loan, activity); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.feed.Publish(ctx, activity)

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID),
		zap.Int("borrowers", len(loan.Borrowers)),
		zap.String("principal", request.Principal.String()),
	)

	return loan, nil
}

// GetLoan loads a loan with interest accrued up to now. Accrual happens
// before the caller sees the loan and is persisted when it changed anything.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (loan *domain.Loan, err error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.GetLoan", trace.WithAttributes(attribute.String("loan.id", loanID)))
	defer func() { endSpan(span, err) }()

	return s.accrual.Load(ctx, loanID)
}

// GetLoanFor is GetLoan followed by the access policy for member.
func (s *LoanService) GetLoanFor(ctx context.Context, loanID string, member domain.Member) (*domain.Loan, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if !domain.CanView(member, loan) {
		return nil, customError.WrapAccessDenied(loanID, member.ID)
	}

	return loan, nil
}

// PostRecord appends record to the ledger of an existing loan and returns
// the appended record only.
func (s *LoanService) PostRecord(ctx context.Context, loanID string, record domain.Record) (posted *domain.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.PostRecord", trace.WithAttributes(attribute.String("loan.id", loanID)))
	defer func() { endSpan(span, err) }()

	loan, err := s.accrual.Load(ctx, loanID)
	if err != nil {
		return nil, err
	}

	appended := loan.AddRecord(record)

	if err = saveLoan(ctx, s.LoanRepo, loan); err != nil {
		return nil, err
	}

	s.logger.Info("record posted",
		zap.String("loan_id", loanID),
		zap.String("type", appended.Type),
		zap.String("amount", appended.Amount.String()),
	)

	return &appended, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
