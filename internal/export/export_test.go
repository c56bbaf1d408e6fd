package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smartexpense/internal/core"
)

func TestMonthlySummaryPDF(t *testing.T) {
	s := core.MonthlySummary{
		UserID: 1, Year: 2024, Month: 3,
		Total: core.Money{Cents: 11674},
		ByCategory: []core.CategoryAmount{
			{Name: "Café", Amount: core.Money{Cents: 1674}},
			{Name: "Food", Amount: core.Money{Cents: 10000}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, MonthlySummaryPDF(&buf, "Zoë", s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, MonthlySummaryPDF(&buf, "alice", core.EmptySummary(1, 2024, 2)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestShare(t *testing.T) {
	assert.Equal(t, "0.0%", share(core.Money{Cents: 5}, core.Money{}))
	assert.Equal(t, "25.0%", share(core.Money{Cents: 25}, core.Money{Cents: 100}))
	assert.Equal(t, "33.3%", share(core.Money{Cents: 1}, core.Money{Cents: 3}))
}

func TestExpensesXLSX(t *testing.T) {
	expenses := []core.Expense{
		{ID: 1, CategoryName: "Food", Amount: core.Money{Cents: 1230}, Description: "lunch",
			SpentAt: time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)},
		{ID: 2, CategoryName: "Travel", Amount: core.Money{Cents: 5},
			SpentAt: time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, ExpensesXLSX(&buf, expenses))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(expensesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, expenseHeaders, rows[0])
	assert.Equal(t, []string{"1", "2024-03-15 12:30:00", "Food", "12.30", "lunch"}, rows[1])
	assert.Equal(t, "0.05", rows[2][3])
}
