package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"smartexpense/internal/core"
)

const expenseColumns = `e.id, e.user_id, e.category_id, c.name, e.amount_cents, e.description, e.spent_at, e.created_at`

// CreateExpense inserts e. A zero SpentAt defaults to now. The returned
// expense carries its category name.
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now().UTC()
	}

	var id int64
	err := r.queryRow(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, spent_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, e.CategoryID, e.Amount.Cents, nullString(e.Description), r.dialect.TimeArg(e.SpentAt),
	).Scan(&id)
	if err != nil {
		return core.Expense{}, r.wrap("create expense", err)
	}

	created, err := r.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", created.ID,
		"user_id", created.UserID,
		"category", created.CategoryName,
		"amount_cents", created.Amount.Cents)

	return created, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.queryRow(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &Error{Op: "get expense", Kind: ErrNotFound, Err: err}
	}
	if err != nil {
		return core.Expense{}, r.wrap("get expense", err)
	}
	return e, nil
}

// ListExpenses returns the expenses of a user, most recent first.
func (r *Repository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.query(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 ORDER BY e.spent_at DESC, e.id DESC`, userID)
	if err != nil {
		return nil, r.wrap("list expenses", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, r.wrap("list expenses", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("list expenses", err)
	}
	return expenses, nil
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                  core.Expense
		desc               sql.NullString
		spentAt, createdAt any
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &e.Amount.Cents, &desc, &spentAt, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.Description = desc.String

	var err error
	if e.SpentAt, err = parseTimestamp(spentAt); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
