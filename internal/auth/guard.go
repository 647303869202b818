package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

const bearerPrefix = "Bearer "

// Error messages written by the guard
const (
	MsgUnauthorized  = "Unauthorized."
	MsgAdminRequired = "Admin access required."
	MsgInternal      = "Internal error."
)

// Decision is the outcome of authenticating a request: either an
// authorized member or the error that denied it.
type Decision struct {
	member domain.Member
	err    error
}

func Authorized(member domain.Member) Decision {
	return Decision{member: member}
}

func Denied(err error) Decision {
	return Decision{err: err}
}

// Member returns the authorized member; ok is false for a denial.
func (d Decision) Member() (member domain.Member, ok bool) {
	return d.member, d.err == nil
}

func (d Decision) Err() error {
	return d.err
}

type Guard struct {
	members repository.MemberRepository
	logger  *zap.Logger
}

func NewGuard(members repository.MemberRepository, logger *zap.Logger) *Guard {
	return &Guard{
		members: members,
		logger:  logger,
	}
}

// Authenticate resolves the bearer token of r to a member. When
// requireAdmin is set a non-admin member is denied with ErrAdminRequired.
func (g *Guard) Authenticate(r *http.Request, requireAdmin bool) Decision {
	token, ok := bearerToken(r)
	if !ok {
		return Denied(customError.ErrUnauthorized)
	}

	member, err := g.members.GetByToken(r.Context(), token)
	if errors.Is(err, customError.ErrMemberNotFound) {
		return Denied(customError.ErrUnauthorized)
	}
	if err != nil {
		return Denied(customError.WrapDatabaseError(err))
	}

	if requireAdmin && !member.IsAdmin() {
		return Denied(customError.ErrAdminRequired)
	}

	return Authorized(*member)
}

// RequireMember admits any authenticated member.
func (g *Guard) RequireMember(next http.Handler) http.Handler {
	return g.require(next, false)
}

// RequireAdmin admits admins only.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.require(next, true)
}

func (g *Guard) require(next http.Handler, requireAdmin bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Authenticate(r, requireAdmin)

		member, ok := decision.Member()
		if !ok {
			g.deny(w, decision.Err())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithMember(r.Context(), member)))
	})
}

func (g *Guard) deny(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customError.ErrAdminRequired):
		response.Forbidden(w, MsgAdminRequired)
	case errors.Is(err, customError.ErrDatabase):
		g.logger.Error("member lookup failed", zap.Error(err))
		response.NotImplemented(w, MsgInternal, customError.ErrCodeDatabaseError)
	default:
		response.Unauthorized(w, MsgUnauthorized)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

type memberKey struct{}

func WithMember(ctx context.Context, member domain.Member) context.Context {
	return context.WithValue(ctx, memberKey{}, member)
}

// MemberFrom returns the member stored by the guard.
func MemberFrom(ctx context.Context) (domain.Member, bool) {
	member, ok := ctx.Value(memberKey{}).(domain.Member)
	return member, ok
}
