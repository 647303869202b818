package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrLoanConflict       = errors.New("loan modified concurrently")
	ErrInvalidMemo        = errors.New("invalid memo")
	ErrInvalidPrincipal   = errors.New("invalid principal")
	ErrInvalidBorrowers   = errors.New("invalid borrowers")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrAccessDenied       = errors.New("access denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAdminRequired      = errors.New("admin access required")
	ErrMemberNotFound     = errors.New("member not found")
	ErrDatabase           = errors.New("database error")
	ErrCache              = errors.New("cache error")
	ErrPublishFailed      = errors.New("event publish failed")
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound     = "LOAN_NOT_FOUND"
	ErrCodeInvalidMemo      = "INVALID_MEMO"
	ErrCodeInvalidPrincipal = "INVALID_PRINCIPAL"
	ErrCodeInvalidBorrowers = "INVALID_BORROWERS"
	ErrCodeInvalidRecord    = "INVALID_RECORD"
	ErrCodeAccessDenied     = "ACCESS_DENIED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeCacheError       = "CACHE_ERROR"
	ErrCodePublishError     = "PUBLISH_ERROR"
)

// CodeOf returns the code of the first BusinessError in err's chain, or "".
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidMemo() *BusinessError {
	return NewBusinessError(ErrCodeInvalidMemo, "memo is required", ErrInvalidMemo)
}

func WrapInvalidPrincipal() *BusinessError {
	return NewBusinessError(ErrCodeInvalidPrincipal, "principal must be a non-zero number", ErrInvalidPrincipal)
}

func WrapInvalidBorrowers(reason string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidBorrowers, reason, ErrInvalidBorrowers)
}

func WrapInvalidRecord(reason string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidRecord, reason, ErrInvalidRecord)
}

func WrapAccessDenied(loanID, memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAccessDenied,
		fmt.Sprintf("Member %s may not view loan %s", memberID, loanID),
		ErrAccessDenied,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		errors.Join(ErrDatabase, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		errors.Join(ErrCache, err),
	)
}

func WrapPublishError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePublishError,
		"Event publish failed",
		errors.Join(ErrPublishFailed, err),
	)
}
