package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the backing database.
type Config struct {
	Driver       string // DriverSQLite or DriverPostgres
	SQLiteDBPath string
	DatabaseURL  string
}

// DSN returns the connection string handed to database/sql.
func (c Config) DSN() string {
	if c.Driver == DriverPostgres {
		return c.DatabaseURL
	}
	return sqliteDSN(c.SQLiteDBPath)
}

// sqliteDSN enables foreign keys on every pooled connection; cascades and
// protect-on-delete depend on it.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if d.Name() == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(d.Driver(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name(), err)
	}

	if d.Name() == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, cfg.DSN()); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Storage ready", "driver", d.Name())

	return New(db, d), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, dialect: d}
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
}

func (r *Repository) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.Rebind(q), args...)
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.Rebind(q), args...)
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
