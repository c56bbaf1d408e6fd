// Package export renders expense data as downloadable documents.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"smartexpense/internal/core"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// MonthlySummaryPDF writes a one page report of s for the named user.
func MonthlySummaryPDF(w io.Writer, userName string, s core.MonthlySummary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	period := time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")

	pdf.SetTitle("Monthly expense summary", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Monthly expense summary")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "Period: "+period)
	pdf.Ln(6)
	pdf.Cell(0, 8, tr("User: "+userName))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total: "+s.Total.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 7, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "Amount", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Share", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	if len(s.ByCategory) == 0 {
		pdf.Cell(0, 7, "No expenses recorded.")
		pdf.Ln(7)
	}
	for _, c := range s.ByCategory {
		pdf.CellFormat(90, 7, tr(c.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, c.Amount.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, share(c.Amount, s.Total), "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// share renders part/total as a one-decimal percentage.
func share(part, total core.Money) string {
	if total.Cents == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part.Cents)*100/float64(total.Cents))
}
