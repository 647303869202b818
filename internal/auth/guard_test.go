package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/mocks"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

var (
	alice = &domain.Member{ID: "id-alice", Username: "alice", Role: domain.RoleMember, Token: "alice-token"}
	root  = &domain.Member{ID: "id-root", Username: "root", Role: domain.RoleAdmin, Token: "root-token"}
)

func newTestGuard() *Guard {
	members := new(mocks.MockMemberRepository)
	members.On("GetByToken", mock.Anything, "alice-token").Return(alice, nil)
	members.On("GetByToken", mock.Anything, "root-token").Return(root, nil)
	members.On("GetByToken", mock.Anything, "broken-token").Return(nil, errors.New("connection refused"))
	members.On("GetByToken", mock.Anything, mock.Anything).Return(nil, customError.ErrMemberNotFound)

	return NewGuard(members, zap.NewNop())
}

func TestGuard_Authenticate(t *testing.T) {
	guard := newTestGuard()

	tests := []struct {
		name         string
		header       string
		requireAdmin bool
		expectedID   string
		expectedErr  error
	}{
		{name: "member token", header: "Bearer alice-token", expectedID: alice.ID},
		{name: "scheme is case insensitive", header: "bearer alice-token", expectedID: alice.ID},
		{name: "admin on admin route", header: "Bearer root-token", requireAdmin: true, expectedID: root.ID},
		{name: "member on admin route", header: "Bearer alice-token", requireAdmin: true, expectedErr: customError.ErrAdminRequired},
		{name: "missing header", header: "", expectedErr: customError.ErrUnauthorized},
		{name: "empty token", header: "Bearer   ", expectedErr: customError.ErrUnauthorized},
		{name: "wrong scheme", header: "Basic YWxpY2U6c2VjcmV0", expectedErr: customError.ErrUnauthorized},
		{name: "unknown token", header: "Bearer nobody", expectedErr: customError.ErrUnauthorized},
		{name: "store failure", header: "Bearer broken-token", expectedErr: customError.ErrDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/loans/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			decision := guard.Authenticate(req, tt.requireAdmin)
			member, ok := decision.Member()

			if tt.expectedErr != nil {
				assert.False(t, ok)
				assert.True(t, errors.Is(decision.Err(), tt.expectedErr), "got %v", decision.Err())
				return
			}
			require.True(t, ok)
			assert.NoError(t, decision.Err())
			assert.Equal(t, tt.expectedID, member.ID)
		})
	}
}

func TestGuard_Middleware(t *testing.T) {
	guard := newTestGuard()

	var seen domain.Member
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, ok := MemberFrom(r.Context())
		require.True(t, ok)
		seen = member
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name           string
		handler        http.Handler
		header         string
		expectedStatus int
		expectedBody   response.ErrorResponse
	}{
		{
			name:           "member passes member route",
			handler:        guard.RequireMember(next),
			header:         "Bearer alice-token",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "anonymous is rejected",
			handler:        guard.RequireMember(next),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   response.ErrorResponse{Err: MsgUnauthorized},
		},
		{
			name:           "member is rejected on admin route",
			handler:        guard.RequireAdmin(next),
			header:         "Bearer alice-token",
			expectedStatus: http.StatusForbidden,
			expectedBody:   response.ErrorResponse{Err: MsgAdminRequired},
		},
		{
			name:           "admin passes admin route",
			handler:        guard.RequireAdmin(next),
			header:         "Bearer root-token",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "store failure hides the cause",
			handler:        guard.RequireMember(next),
			header:         "Bearer broken-token",
			expectedStatus: http.StatusNotImplemented,
			expectedBody:   response.ErrorResponse{Err: MsgInternal, Code: customError.ErrCodeDatabaseError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = domain.Member{}
			req := httptest.NewRequest(http.MethodGet, "/loans/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusNoContent {
				assert.NotEmpty(t, seen.ID)
				return
			}

			var body response.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.expectedBody, body)
			assert.Empty(t, seen.ID)
		})
	}
}

func TestMemberFrom_Empty(t *testing.T) {
	_, ok := MemberFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
