package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"smartexpense/internal/core"
	"smartexpense/internal/export"
	applog "smartexpense/internal/log"
)

// queryUserID reads the mandatory user_id filter, writing a 400 when it is
// missing or malformed.
func queryUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if raw == "" {
		BadRequestError("user_id is required").Write(w)
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		BadRequestError("user_id must be an integer.").Write(w)
		return 0, false
	}
	return userID, true
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}

	expenses, err := s.backend.ListExpenses(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, newExpenseView(e))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeBodyError(w, r, err)
		return
	}

	verr := core.ValidationError{}
	e := core.Expense{
		UserID:      p.Int(verr, "user_id"),
		CategoryID:  p.Int(verr, "category_id"),
		Amount:      p.Amount(verr, "amount"),
		Description: p.String(verr, "description", false),
		SpentAt:     p.Time(verr, "spent_at"),
	}
	e.Normalize()
	mergeMissing(verr, e.Validate())
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogExpenseCreated(r.Context(), created)
	NewJSONResponse().Status(http.StatusCreated).Body(newExpenseView(created)).Write(w)
}

// handleExportExpenses serves a user's expenses as a spreadsheet.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	if _, err := s.backend.GetUser(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.backend.ListExpenses(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.ExpensesXLSX(&buf, expenses); err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, export.ContentTypeXLSX, fmt.Sprintf("expenses_%d.xlsx", userID), buf.Bytes())
}
