package ports

import (
	"context"

	"smartexpense/internal/core"
)

// Ports implemented by storage and consumed by services and HTTP handlers.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		DeleteUser(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// ListExpenses returns a user's expenses, most recent first.
		ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
	}

	// SummaryReader answers the monthly aggregation query.
	SummaryReader interface {
		MonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error)
	}

	HealthChecker interface {
		Ping(ctx context.Context) error
	}

	// Backend is everything the HTTP layer reads from storage.
	Backend interface {
		UserStore
		CategoryStore
		ExpenseStore
		SummaryReader
		HealthChecker
	}

	// ExpenseCreator validates and records a new expense.
	ExpenseCreator interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}
)
