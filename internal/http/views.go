package http

import (
	"time"

	"smartexpense/internal/core"
)

// Wire representations. Optional text is rendered as null when empty.

type userView struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

type categoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type expenseView struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Amount       core.Money `json:"amount"`
	Description  *string    `json:"description"`
	SpentAt      string     `json:"spent_at"`
}

type categoryTotalView struct {
	CategoryName string     `json:"category_name"`
	TotalAmount  core.Money `json:"total_amount"`
}

type summaryView struct {
	TotalExpenses      core.Money          `json:"total_expenses"`
	ExpensesByCategory []categoryTotalView `json:"expenses_by_category"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: optional(u.Email)}
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name}
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:           e.ID,
		UserID:       e.UserID,
		CategoryID:   e.CategoryID,
		CategoryName: e.CategoryName,
		Amount:       e.Amount,
		Description:  optional(e.Description),
		SpentAt:      e.SpentAt.UTC().Format(time.RFC3339Nano),
	}
}

func newSummaryView(s core.MonthlySummary) summaryView {
	out := summaryView{
		TotalExpenses:      s.Total,
		ExpensesByCategory: make([]categoryTotalView, 0, len(s.ByCategory)),
	}
	for _, c := range s.ByCategory {
		out.ExpensesByCategory = append(out.ExpensesByCategory, categoryTotalView{
			CategoryName: c.Name,
			TotalAmount:  c.Amount,
		})
	}
	return out
}
