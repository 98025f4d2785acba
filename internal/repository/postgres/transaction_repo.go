package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/budget-tracker/internal/errs"
	"github.com/and161185/budget-tracker/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements TransactionRepository using PostgreSQL.
type TransactionRepo struct{ db *DB }

// NewTransactionRepo constructs a transaction repository.
func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = `id, user_id, description, amount::float8, type, category, transaction_date, created_at, updated_at`

// Create inserts a transaction row.
func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, description, amount, type, category, transaction_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q,
		t.ID, t.UserID, t.Description, t.Amount, string(t.Type), t.Category, t.Date,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if isDataViolation(err) {
		return fmt.Errorf("%w: transaction rejected by storage", errs.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get selects one transaction owned by userID.
func (r *TransactionRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Transaction, error) {
	const q = `SELECT ` + txColumns + ` FROM transactions WHERE id=$1 AND user_id=$2`
	t, err := scanTransaction(r.db.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List selects the owner's transactions matching f, newest date first.
func (r *TransactionRepo) List(ctx context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error) {
	q, args := buildListQuery(userID, f)
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update overwrites mutable fields of an owned transaction.
func (r *TransactionRepo) Update(ctx context.Context, t *model.Transaction) error {
	const q = `
UPDATE transactions
SET description = $3, amount = $4, type = $5, category = $6, transaction_date = $7, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q,
		t.ID, t.UserID, t.Description, t.Amount, string(t.Type), t.Category, t.Date,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	if isDataViolation(err) {
		return fmt.Errorf("%w: transaction rejected by storage", errs.ErrValidation)
	}
	return err
}

// Delete removes an owned transaction.
func (r *TransactionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// buildListQuery renders the filtered SELECT. user_id is always the first condition.
func buildListQuery(userID uuid.UUID, f model.TransactionFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if !f.From.IsZero() {
		add("transaction_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("transaction_date <= $%d", f.To)
	}

	var b strings.Builder
	b.WriteString("SELECT " + txColumns + " FROM transactions WHERE ")
	b.WriteString(strings.Join(conds, " AND "))
	b.WriteString(" ORDER BY transaction_date DESC, created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t   model.Transaction
		typ string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount, &typ, &t.Category, &t.Date, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Type = model.TransactionType(typ)
	return &t, nil
}
