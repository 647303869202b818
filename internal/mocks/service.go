package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) GetLoanFor(ctx context.Context, loanID string, member domain.Member) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, member)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) PostRecord(ctx context.Context, loanID string, record domain.Record) (*domain.Record, error) {
	args := m.Called(ctx, loanID, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

// NewMockLoanService creates a new mock loan service instance
func NewMockLoanService() *MockLoanService {
	return &MockLoanService{}
}
