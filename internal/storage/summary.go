package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// monthlySummaryQuery computes the month total and the per-category totals
// in one round trip. The total is repeated on every row. %s is the dialect's
// month predicate.
const monthlySummaryQuery = `
WITH filtered AS (
    SELECT e.amount_cents, e.category_id
    FROM expenses e
    WHERE e.user_id = ?
      AND %s
),
agg AS (
    SELECT c.name AS category_name, SUM(f.amount_cents) AS total_amount
    FROM filtered f
    JOIN categories c ON c.id = f.category_id
    GROUP BY c.name
),
total AS (
    SELECT COALESCE(SUM(amount_cents), 0) AS total_expenses FROM filtered
)
SELECT
    (SELECT total_expenses FROM total) AS total_expenses,
    a.category_name,
    a.total_amount
FROM agg a
ORDER BY a.category_name ASC`

// MonthlySummaryQuery returns the dialect specific summary statement and its
// arguments.
func MonthlySummaryQuery(d Dialect, userID int64, year, month int) (string, []any) {
	q := d.Rebind(fmt.Sprintf(monthlySummaryQuery, d.MonthPredicate("e.spent_at")))
	args := append([]any{userID}, d.MonthArgs(year, month)...)
	return q, args
}

// MonthlySummary aggregates a user's spend for one calendar month (UTC).
func (r *Repository) MonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	if err := core.ValidatePeriod(year, month); err != nil {
		return core.MonthlySummary{}, err
	}

	summary := core.EmptySummary(userID, year, month)

	q, args := MonthlySummaryQuery(r.dialect, userID, year, month)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return core.MonthlySummary{}, r.wrap("monthly summary", err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		var (
			total, amount decimal.Decimal
			name          string
		)
		if err := rows.Scan(&total, &name, &amount); err != nil {
			return core.MonthlySummary{}, r.wrap("monthly summary", err)
		}
		if first {
			summary.Total = centsToMoney(total)
			first = false
		}
		summary.ByCategory = append(summary.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: centsToMoney(amount),
		})
	}
	if err := rows.Err(); err != nil {
		return core.MonthlySummary{}, r.wrap("monthly summary", err)
	}

	slog.DebugContext(ctx, "Monthly summary computed",
		"user_id", userID,
		"year", year,
		"month", month,
		"total_cents", summary.Total.Cents,
		"categories", len(summary.ByCategory))

	return summary, nil
}

// centsToMoney rounds an aggregated cent amount half-up to a whole cent.
// SUM over integer cents is already whole; PostgreSQL hands it back as
// NUMERIC.
func centsToMoney(d decimal.Decimal) core.Money {
	return core.Money{Cents: d.Round(0).IntPart()}
}
