package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetByUsername(ctx context.Context, username string) (*domain.Member, error) {
	query := `
		SELECT id, username, role, token, created_at
		FROM members
		WHERE username = $1
	`

	return r.get(ctx, query, username)
}

func (r *memberRepository) GetByToken(ctx context.Context, token string) (*domain.Member, error) {
	query := `
		SELECT id, username, role, token, created_at
		FROM members
		WHERE token = $1
	`

	return r.get(ctx, query, token)
}

func (r *memberRepository) get(ctx context.Context, query string, arg string) (*domain.Member, error) {
	var member domain.Member
	err := r.db.GetContext(ctx, &member, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	return &member, nil
}
