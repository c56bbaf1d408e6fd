package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/core"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	buf.Reset()
	return rec
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentStorage, Output: &buf})

	logger.InfoContext(context.Background(), "opened", "driver", "sqlite")
	rec := decodeLine(t, &buf)
	assert.Equal(t, "storage", rec[FieldComponent])
	assert.Equal(t, "sqlite", rec["driver"])

	logger.WithComponent(ComponentHTTP).WarnContext(context.Background(), "slow")
	rec = decodeLine(t, &buf)
	assert.Equal(t, "http", rec[FieldComponent])
	assert.Equal(t, "WARN", rec["level"])
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	ctx := context.Background()

	sl.LogExpenseCreated(ctx, core.Expense{
		ID: 3, UserID: 1, CategoryID: 2, CategoryName: "Food",
		Amount:  core.Money{Cents: 1250},
		SpentAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	rec := decodeLine(t, &buf)
	assert.Equal(t, "expense", rec[FieldComponent])
	assert.EqualValues(t, 1250, rec[FieldAmountCents])
	assert.Equal(t, "2024-03-01T00:00:00Z", rec[FieldSpentAt])

	r := httptest.NewRequest("POST", "/expenses", nil)
	sl.LogHTTPEnd(ctx, r, 500, 12, "10.0.0.1")
	rec = decodeLine(t, &buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, false, rec[FieldSuccess])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())

	custom := New(DefaultConfig())
	assert.Same(t, custom, FromContext(NewContext(context.Background(), custom)))
}
