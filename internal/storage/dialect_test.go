package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Driver())

	d, err = DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.Driver())

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	assert.Equal(t, "SELECT $1, $2 WHERE a = $3", d.Rebind("SELECT ?, ? WHERE a = ?"))
	assert.Equal(t, "SELECT 1", d.Rebind("SELECT 1"))
	assert.Equal(t, "x = ?", sqliteDialect{}.Rebind("x = ?"))
}

func TestMonthArgs(t *testing.T) {
	assert.Equal(t, []any{"2024", "03"}, sqliteDialect{}.MonthArgs(2024, 3))
	assert.Equal(t, []any{"0999", "12"}, sqliteDialect{}.MonthArgs(999, 12))
	assert.Equal(t, []any{2024, 3}, postgresDialect{}.MonthArgs(2024, 3))
}

func TestMonthlySummaryQuery(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		q, args := MonthlySummaryQuery(sqliteDialect{}, 7, 2024, 3)
		assert.Contains(t, q, "strftime('%Y', e.spent_at) = ?")
		assert.Contains(t, q, "strftime('%m', e.spent_at) = ?")
		assert.Equal(t, 3, strings.Count(q, "?"))
		assert.Equal(t, []any{int64(7), "2024", "03"}, args)
	})

	t.Run("postgres", func(t *testing.T) {
		q, args := MonthlySummaryQuery(postgresDialect{}, 7, 2024, 3)
		assert.Contains(t, q, "e.user_id = $1")
		assert.Contains(t, q, "EXTRACT(YEAR FROM e.spent_at AT TIME ZONE 'UTC') = $2")
		assert.Contains(t, q, "EXTRACT(MONTH FROM e.spent_at AT TIME ZONE 'UTC') = $3")
		assert.NotContains(t, q, "?")
		assert.Equal(t, []any{int64(7), 2024, 3}, args)
	})
}

func TestPostgresClassify(t *testing.T) {
	d := postgresDialect{}
	tests := map[string]error{
		"23505": ErrConflict,
		"23503": ErrForeignKey,
		"23514": ErrCheckViolation,
		"42P01": nil,
	}
	for code, want := range tests {
		got := d.classify(&pgconn.PgError{Code: code})
		assert.Equal(t, want, got, code)
	}
	assert.Nil(t, d.classify(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505"}
	repo := New(nil, postgresDialect{})
	err := repo.wrap("create user", cause)

	assert.ErrorIs(t, err, ErrConflict)
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Contains(t, err.Error(), "create user")

	plain := repo.wrap("list users", errors.New("boom"))
	assert.NotErrorIs(t, plain, ErrConflict)
	assert.Nil(t, repo.wrap("noop", nil))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 30, 45, 123456000, time.UTC)

	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{"time value", want.In(time.FixedZone("X", 3600)), want},
		{"sqlite layout", "2024-03-15 12:30:45.123456", want},
		{"bytes", []byte("2024-03-15 12:30:45.123456"), want},
		{"current_timestamp", "2024-03-15 12:30:45", want.Truncate(time.Second)},
		{"rfc3339", "2024-03-15T12:30:45.123456Z", want},
		{"nil", nil, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
	_, err = parseTimestamp(42)
	assert.Error(t, err)
}

func TestSQLiteTimeArgSortsLexically(t *testing.T) {
	d := sqliteDialect{}
	a := d.TimeArg(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)).(string)
	b := d.TimeArg(time.Date(2024, 3, 1, 10, 0, 0, 5000, time.UTC)).(string)
	assert.Less(t, a, b)
	assert.Len(t, a, len(b))
}
