package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"smartexpense/internal/core"
)

const expensesSheet = "Expenses"

var expenseHeaders = []string{"ID", "Spent at (UTC)", "Category", "Amount", "Description"}

// ExpensesXLSX writes one row per expense below a header row. Amounts are
// numeric cells formatted with two decimals.
func ExpensesXLSX(w io.Writer, expenses []core.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range expenseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(expensesSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for idx, e := range expenses {
		row := idx + 2
		values := []any{
			e.ID,
			e.SpentAt.UTC().Format("2006-01-02 15:04:05"),
			e.CategoryName,
			e.Amount.Decimal().InexactFloat64(),
			e.Description,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(expensesSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(4, row)
		if err := f.SetCellStyle(expensesSheet, cell, cell, amountStyle); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(expensesSheet, "B", "B", 20)
	_ = f.SetColWidth(expensesSheet, "C", "C", 18)
	_ = f.SetColWidth(expensesSheet, "E", "E", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
