package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

const maxBodyBytes = 1 << 20

// Client facing messages
const (
	MsgInvalidMemo      = "Invalid memo."
	MsgInvalidPrincipal = "Invalid principal."
	MsgInvalidBorrowers = "Invalid borrowers."
	MsgInvalidRate      = "Invalid interest rate."
	MsgInvalidRecord    = "Invalid record."
	MsgInvalidBody      = "Invalid request body."
	MsgLoanNotFound     = "Loan does not exist."
	MsgAccessDenied     = "Access denied."
	MsgInternal         = "Internal error."
)

// LoanService is the part of the service layer the handlers use.
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	GetLoanFor(ctx context.Context, loanID string, member domain.Member) (*domain.Loan, error)
	PostRecord(ctx context.Context, loanID string, record domain.Record) (*domain.Record, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

// CreateLoan handles POST /loans/create
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		response.BadRequest(w, MsgInvalidBody)
		return
	}

	var req domain.CreateLoanRequest
	if err := req.UnmarshalJSON(body); err != nil {
		response.BadRequest(w, MsgInvalidBody)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// GetLoan handles GET /loans/{id}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	member, ok := auth.MemberFrom(r.Context())
	if !ok {
		response.Unauthorized(w, auth.MsgUnauthorized)
		return
	}

	loan, err := h.service.GetLoanFor(r.Context(), mux.Vars(r)["id"], member)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// PostRecord handles POST /loans/{id}/post
func (h *LoanHandler) PostRecord(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		response.BadRequest(w, MsgInvalidBody)
		return
	}

	var record domain.Record
	if err := record.UnmarshalJSON(body); err != nil {
		h.writeError(w, r, err)
		return
	}

	posted, err := h.service.PostRecord(r.Context(), mux.Vars(r)["id"], record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, posted)
}

// writeError maps service errors onto the client envelope. Internal
// failures are logged and answered with an opaque code.
func (h *LoanHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, customError.ErrInvalidMemo):
		response.BadRequest(w, MsgInvalidMemo)
	case errors.Is(err, customError.ErrInvalidPrincipal):
		response.BadRequest(w, MsgInvalidPrincipal)
	case errors.Is(err, customError.ErrInvalidBorrowers):
		response.BadRequest(w, MsgInvalidBorrowers)
	case errors.Is(err, customError.ErrInvalidRecord):
		response.BadRequest(w, MsgInvalidRecord)
	case errors.Is(err, customError.ErrLoanNotFound):
		response.NotFound(w, MsgLoanNotFound)
	case errors.Is(err, customError.ErrAccessDenied):
		response.Forbidden(w, MsgAccessDenied)
	default:
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.NotImplemented(w, MsgInternal, customError.ErrCodeDatabaseError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// validationMessage reports the first failing field; fields are checked in
// declaration order, so memo wins over principal, principal over borrowers.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return MsgInvalidBody
	}

	switch verrs[0].StructField() {
	case "Memo":
		return MsgInvalidMemo
	case "Principal":
		return MsgInvalidPrincipal
	case "Borrowers":
		return MsgInvalidBorrowers
	case "InterestRate":
		return MsgInvalidRate
	default:
		return MsgInvalidBody
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("decimal_nonzero", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsZero()
	})
	_ = v.RegisterValidation("decimal_nonnegative", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}
