package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

const (
	tableLoans       = "loans"
	dialectPostgres  = "postgres"
	colID            = "id"
	colMemo          = "memo"
	colBorrowers     = "borrowers"
	colArchived      = "archived"
	colInterestRate  = "interest_rate"
	colRecords       = "records"
	colAttributes    = "attributes"
	colLastAccruedAt = "last_accrued_at"
	colCreatedAt     = "created_at"
	colUpdatedAt     = "updated_at"
	emptyJSONObject  = "{}"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// loanRow is the loans table shape; records and attributes are JSONB.
type loanRow struct {
	ID            string          `db:"id"`
	Memo          string          `db:"memo"`
	Borrowers     pq.StringArray  `db:"borrowers"`
	Archived      bool            `db:"archived"`
	InterestRate  decimal.Decimal `db:"interest_rate"`
	Records       []byte          `db:"records"`
	Attributes    []byte          `db:"attributes"`
	LastAccruedAt time.Time       `db:"last_accrued_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, activity *domain.Activity) error {
	query, args, err := buildInsertLoan(loan)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if activity != nil {
		if err = insertActivity(ctx, tx, activity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	// ids are uuids; anything else cannot exist and must not reach postgres
	if _, err := uuid.Parse(id); err != nil {
		return nil, customError.ErrLoanNotFound
	}

	query, args, err := buildSelectLoan(id)
	if err != nil {
		return nil, err
	}

	var row loanRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	return r.update(ctx, loan, customError.ErrLoanNotFound)
}

func (r *loanRepository) UpdateIfUnmodified(ctx context.Context, loan *domain.Loan, loadedAt time.Time) error {
	return r.update(ctx, loan, customError.ErrLoanConflict, goqu.C(colUpdatedAt).Eq(loadedAt))
}

// update rewrites the loan row; noRows is returned when no row matched.
func (r *loanRepository) update(ctx context.Context, loan *domain.Loan, noRows error, guards ...exp.Expression) error {
	previous := loan.UpdatedAt
	loan.UpdatedAt = time.Now().UTC()

	query, args, err := buildUpdateLoan(loan, guards...)
	if err != nil {
		loan.UpdatedAt = previous
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		loan.UpdatedAt = previous
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		loan.UpdatedAt = previous
		return noRows
	}

	return nil
}

func (r *loanRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	query, args, err := goqu.Dialect(dialectPostgres).
		From(tableLoans).
		Select(colID).
		Where(goqu.C(colArchived).IsFalse()).
		Order(goqu.C(colCreatedAt).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}

	return ids, nil
}

func buildInsertLoan(loan *domain.Loan) (string, []interface{}, error) {
	record, err := loanRecord(loan)
	if err != nil {
		return "", nil, err
	}
	record[colID] = loan.ID
	record[colCreatedAt] = loan.CreatedAt

	query, args, err := goqu.Dialect(dialectPostgres).
		Insert(tableLoans).
		Rows(record).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert query: %w", err)
	}

	return query, args, nil
}

func buildSelectLoan(id string) (string, []interface{}, error) {
	query, args, err := goqu.Dialect(dialectPostgres).
		From(tableLoans).
		Select(colID, colMemo, colBorrowers, colArchived, colInterestRate, colRecords,
			colAttributes, colLastAccruedAt, colCreatedAt, colUpdatedAt).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build select query: %w", err)
	}

	return query, args, nil
}

func buildUpdateLoan(loan *domain.Loan, guards ...exp.Expression) (string, []interface{}, error) {
	record, err := loanRecord(loan)
	if err != nil {
		return "", nil, err
	}

	where := append([]exp.Expression{goqu.C(colID).Eq(loan.ID)}, guards...)

	query, args, err := goqu.Dialect(dialectPostgres).
		Update(tableLoans).
		Set(record).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build update query: %w", err)
	}

	return query, args, nil
}

// loanRecord holds the mutable columns of a loan.
func loanRecord(loan *domain.Loan) (goqu.Record, error) {
	records, err := jsonCodec.Marshal(loan.Records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	attributes := []byte(emptyJSONObject)
	if len(loan.Attributes) > 0 {
		if attributes, err = jsonCodec.Marshal(loan.Attributes); err != nil {
			return nil, fmt.Errorf("encode attributes: %w", err)
		}
	}

	return goqu.Record{
		colMemo:          loan.Memo,
		colBorrowers:     pq.StringArray(loan.Borrowers),
		colArchived:      loan.Archived,
		colInterestRate:  loan.InterestRate,
		colRecords:       string(records),
		colAttributes:    string(attributes),
		colLastAccruedAt: loan.LastAccruedAt,
		colUpdatedAt:     loan.UpdatedAt,
	}, nil
}

func (row loanRow) toDomain() (*domain.Loan, error) {
	loan := &domain.Loan{
		ID:            row.ID,
		Memo:          row.Memo,
		Borrowers:     []string(row.Borrowers),
		Archived:      row.Archived,
		InterestRate:  row.InterestRate,
		LastAccruedAt: row.LastAccruedAt.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}

	if err := jsonCodec.Unmarshal(row.Records, &loan.Records); err != nil {
		return nil, fmt.Errorf("decode records of loan %s: %w", row.ID, err)
	}

	var attributes map[string]json.RawMessage
	if len(row.Attributes) > 0 {
		if err := jsonCodec.Unmarshal(row.Attributes, &attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of loan %s: %w", row.ID, err)
		}
	}
	if len(attributes) > 0 {
		loan.Attributes = attributes
	}

	return loan, nil
}
