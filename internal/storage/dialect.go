package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so text ordering matches time ordering and
// strftime() can parse the stored value.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// Dialect isolates the SQL differences between supported backends.
type Dialect interface {
	// Name is the backend name as used in configuration.
	Name() string
	// Driver is the database/sql driver name.
	Driver() string
	// Rebind rewrites '?' placeholders into the backend's style.
	Rebind(query string) string
	// MonthPredicate returns a condition selecting rows of column within a
	// calendar month, using two placeholders filled by MonthArgs.
	MonthPredicate(column string) string
	MonthArgs(year, month int) []any
	// TimeArg converts a timestamp into a bindable value.
	TimeArg(t time.Time) any
	// classify maps a driver error onto a storage sentinel, or nil.
	classify(err error) error
}

// DialectFor returns the dialect for a backend name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DriverSQLite:
		return sqliteDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", name)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string   { return DriverSQLite }
func (sqliteDialect) Driver() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) MonthPredicate(column string) string {
	return fmt.Sprintf("strftime('%%Y', %s) = ? AND strftime('%%m', %s) = ?", column, column)
}

// MonthArgs returns zero padded strings, strftime() yields text.
func (sqliteDialect) MonthArgs(year, month int) []any {
	return []any{fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month)}
}

func (sqliteDialect) TimeArg(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func (sqliteDialect) classify(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return nil
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrConflict
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ErrForeignKey
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return ErrCheckViolation
	}
	if serr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return nil
	}
	// Primary code only, fall back to the message
	msg := serr.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrConflict
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrForeignKey
	case strings.Contains(msg, "CHECK constraint failed"):
		return ErrCheckViolation
	}
	return nil
}

type postgresDialect struct{}

func (postgresDialect) Name() string   { return DriverPostgres }
func (postgresDialect) Driver() string { return "pgx" }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// MonthPredicate extracts in UTC so the session time zone never shifts rows
// across a month boundary.
func (postgresDialect) MonthPredicate(column string) string {
	return fmt.Sprintf("EXTRACT(YEAR FROM %s AT TIME ZONE 'UTC') = ? AND EXTRACT(MONTH FROM %s AT TIME ZONE 'UTC') = ?", column, column)
}

func (postgresDialect) MonthArgs(year, month int) []any {
	return []any{year, month}
}

func (postgresDialect) TimeArg(t time.Time) any {
	return t.UTC()
}

func (postgresDialect) classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505":
		return ErrConflict
	case "23503":
		return ErrForeignKey
	case "23514":
		return ErrCheckViolation
	}
	return nil
}

// parseTimestamp accepts what either driver hands back for a timestamp column.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimestampString(t)
	case []byte:
		return parseTimestampString(string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

var timestampLayouts = []string{
	sqliteTimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestampString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
