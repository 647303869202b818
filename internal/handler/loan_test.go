package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/mocks"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

var (
	testAdmin  = domain.Member{ID: "id-root", Username: "root", Role: domain.RoleAdmin}
	testMember = domain.Member{ID: "id-alice", Username: "alice", Role: domain.RoleMember}
)

// newTestRouter mounts the handlers the way the server does, with the
// guard replaced by a fixed member.
func newTestRouter(svc LoanService, member domain.Member) *mux.Router {
	h := NewLoanHandler(svc, zap.NewNop())
	withMember := func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next(w, r.WithContext(auth.WithMember(r.Context(), member)))
		})
	}

	router := mux.NewRouter()
	router.Handle("/loans/create", withMember(h.CreateLoan)).Methods(http.MethodPost)
	router.Handle("/loans/{id}", withMember(h.GetLoan)).Methods(http.MethodGet)
	router.Handle("/loans/{id}/post", withMember(h.PostRecord)).Methods(http.MethodPost)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func sampleLoan() *domain.Loan {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.NewLoan("Car", []string{testMember.ID}, decimal.NewFromInt(1000), decimal.RequireFromString("0.10"), at)
}

func TestCreateLoanHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedErr    string
		expectedCode   string
	}{
		{
			name: "Success",
			body: `{"memo":"Car","principal":1000,"borrowers":["alice"]}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.Memo == "Car" &&
						req.Principal.Equal(decimal.NewFromInt(1000)) &&
						len(req.Borrowers) == 1 && req.Borrowers[0] == "alice"
				})).Return(sampleLoan(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing memo wins over every other field",
			body:           `{"principal":0,"borrowers":[]}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidMemo,
		},
		{
			name:           "zero principal",
			body:           `{"memo":"Car","principal":0,"borrowers":["alice"]}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidPrincipal,
		},
		{
			name:           "non numeric principal",
			body:           `{"memo":"Car","principal":"lots","borrowers":["alice"]}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidPrincipal,
		},
		{
			name:           "borrowers is not a list",
			body:           `{"memo":"Car","principal":10,"borrowers":"alice"}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidBorrowers,
		},
		{
			name:           "empty borrowers",
			body:           `{"memo":"Car","principal":10,"borrowers":[]}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidBorrowers,
		},
		{
			name:           "negative interest rate",
			body:           `{"memo":"Car","principal":10,"borrowers":["alice"],"interest_rate":-1}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidRate,
		},
		{
			name:           "body is not an object",
			body:           `[1,2]`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidBody,
		},
		{
			name: "unknown borrower",
			body: `{"memo":"Car","principal":1000,"borrowers":["ghost"]}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, customError.WrapInvalidBorrowers(`unknown member "ghost"`))
			},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidBorrowers,
		},
		{
			name: "database failure is opaque",
			body: `{"memo":"Car","principal":1000,"borrowers":["alice"]}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, customError.WrapDatabaseError(errors.New("pq: relation does not exist")))
			},
			expectedStatus: http.StatusNotImplemented,
			expectedErr:    MsgInternal,
			expectedCode:   customError.ErrCodeDatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockLoanService()
			tt.setupMock(svc)

			rec := serve(newTestRouter(svc, testAdmin), http.MethodPost, "/loans/create", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedErr != "" {
				body := decodeError(t, rec)
				assert.Equal(t, tt.expectedErr, body.Err)
				assert.Equal(t, tt.expectedCode, body.Code)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCreateLoanHandler_ResponseBody(t *testing.T) {
	loan := sampleLoan()
	svc := mocks.NewMockLoanService()
	svc.On("CreateLoan", mock.Anything, mock.Anything).Return(loan, nil)

	rec := serve(newTestRouter(svc, testAdmin), http.MethodPost, "/loans/create",
		`{"memo":"Car","principal":1000,"borrowers":["alice"]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		ID        string            `json:"id"`
		Borrowers []string          `json:"borrowers"`
		Records   []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, loan.ID, got.ID)
	assert.Equal(t, []string{testMember.ID}, got.Borrowers)
	require.Len(t, got.Records, 1)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Records[0], &first))
	assert.Equal(t, float64(1000), first["amount"])
	assert.Equal(t, domain.RecordTypePrincipal, first["type"])
}

func TestCreateLoanHandler_ForwardsExtraFields(t *testing.T) {
	svc := mocks.NewMockLoanService()
	svc.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
		raw, ok := req.Extra["color"]
		return ok && string(raw) == `"red"`
	})).Return(sampleLoan(), nil)

	rec := serve(newTestRouter(svc, testAdmin), http.MethodPost, "/loans/create",
		`{"memo":"Car","principal":1000,"borrowers":["alice"],"color":"red"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetLoanHandler(t *testing.T) {
	loan := sampleLoan()

	tests := []struct {
		name           string
		member         domain.Member
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedErr    string
	}{
		{
			name:   "borrower reads own loan",
			member: testMember,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoanFor", mock.Anything, loan.ID, testMember).Return(loan, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "stranger is denied without data",
			member: domain.Member{ID: "id-mallory", Role: domain.RoleMember},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoanFor", mock.Anything, loan.ID, mock.Anything).Return(nil, customError.WrapAccessDenied(loan.ID, "id-mallory"))
			},
			expectedStatus: http.StatusForbidden,
			expectedErr:    MsgAccessDenied,
		},
		{
			name:   "missing loan",
			member: testAdmin,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetLoanFor", mock.Anything, loan.ID, testAdmin).Return(nil, customError.WrapLoanNotFound(loan.ID))
			},
			expectedStatus: http.StatusNotFound,
			expectedErr:    MsgLoanNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockLoanService()
			tt.setupMock(svc)

			rec := serve(newTestRouter(svc, tt.member), http.MethodGet, "/loans/"+loan.ID, "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedErr != "" {
				body := decodeError(t, rec)
				assert.Equal(t, tt.expectedErr, body.Err)
				assert.NotContains(t, rec.Body.String(), "records")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetLoanHandler_WithoutMember(t *testing.T) {
	h := NewLoanHandler(mocks.NewMockLoanService(), zap.NewNop())
	rec := httptest.NewRecorder()

	h.GetLoan(rec, httptest.NewRequest(http.MethodGet, "/loans/x", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostRecordHandler(t *testing.T) {
	loanID := "0b5a4a40-8d4b-4bd5-9d0a-3c9f2d3c1a11"

	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedErr    string
		expectedBody   string
	}{
		{
			name: "returns the appended record only",
			body: `{"amount":100,"type":"payment","note":"cash"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("PostRecord", mock.Anything, loanID, mock.MatchedBy(func(r domain.Record) bool {
					return r.Type == domain.RecordTypePayment && r.Amount.Equal(decimal.NewFromInt(100))
				})).Return(&domain.Record{
					Amount: decimal.NewFromInt(100),
					Type:   domain.RecordTypePayment,
					Extra:  map[string]json.RawMessage{"note": json.RawMessage(`"cash"`)},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"amount":100,"type":"payment","note":"cash"}`,
		},
		{
			name:           "non numeric amount",
			body:           `{"amount":"abc","type":"payment"}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidRecord,
		},
		{
			name:           "not an object",
			body:           `"payment"`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErr:    MsgInvalidRecord,
		},
		{
			name: "missing loan",
			body: `{"amount":100,"type":"payment"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("PostRecord", mock.Anything, loanID, mock.Anything).Return(nil, customError.WrapLoanNotFound(loanID))
			},
			expectedStatus: http.StatusNotFound,
			expectedErr:    MsgLoanNotFound,
		},
		{
			name: "save failure",
			body: `{"amount":100,"type":"payment"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("PostRecord", mock.Anything, loanID, mock.Anything).Return(nil, customError.WrapDatabaseError(errors.New("deadlock")))
			},
			expectedStatus: http.StatusNotImplemented,
			expectedErr:    MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockLoanService()
			tt.setupMock(svc)

			rec := serve(newTestRouter(svc, testAdmin), http.MethodPost, "/loans/"+loanID+"/post", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedErr != "" {
				assert.Equal(t, tt.expectedErr, decodeError(t, rec).Err)
			}
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
