package http

import (
	"bytes"
	"fmt"
	"net/http"

	"smartexpense/internal/export"
	applog "smartexpense/internal/log"
)

type reportParams struct {
	userID      int64
	year, month int
}

func parseReportParams(r *http.Request) (reportParams, bool) {
	q := r.URL.Query()
	year, errYear := queryInt(q, "year")
	month, errMonth := queryInt(q, "month")
	userID, errUser := queryInt(q, "user_id")
	if errYear != nil || errMonth != nil || errUser != nil {
		return reportParams{}, false
	}
	return reportParams{userID: int64(userID), year: year, month: month}, true
}

// handleMonthlySummary serves GET /reports/monthly_summary?year=&month=&user_id=.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	p, ok := parseReportParams(r)
	if !ok {
		BadRequestError(msgReportParams).Write(w)
		return
	}

	summary, err := s.backend.MonthlySummary(r.Context(), p.userID, p.year, p.month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogSummary(r.Context(), summary)
	NewJSONResponse().Body(newSummaryView(summary)).Write(w)
}

// handleMonthlySummaryPDF serves the same report as a PDF attachment. The
// user must exist.
func (s *Server) handleMonthlySummaryPDF(w http.ResponseWriter, r *http.Request) {
	p, ok := parseReportParams(r)
	if !ok {
		BadRequestError(msgReportParams).Write(w)
		return
	}

	summary, err := s.backend.MonthlySummary(r.Context(), p.userID, p.year, p.month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.backend.GetUser(r.Context(), p.userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.MonthlySummaryPDF(&buf, user.Name, summary); err != nil {
		writeError(w, r, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogSummary(r.Context(), summary)
	writeAttachment(w, export.ContentTypePDF,
		fmt.Sprintf("summary_%d_%04d_%02d.pdf", p.userID, p.year, p.month), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
