package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/loan-ledger/internal/domain"
)

const insertActivityQuery = `
	INSERT INTO activities (id, type, members, loans, amount, memo, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// insertActivity writes a feed entry; callers pass the transaction the
// entry belongs to.
func insertActivity(ctx context.Context, tx sqlx.ExecerContext, activity *domain.Activity) error {
	_, err := tx.ExecContext(ctx, insertActivityQuery,
		activity.ID,
		activity.Type,
		pq.Array(activity.Members),
		pq.Array(activity.Loans),
		activity.Amount,
		activity.Memo,
		activity.CreatedAt,
	)

	return err
}
