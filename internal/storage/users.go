package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"smartexpense/internal/core"
)

// CreateUser inserts u and returns it with its generated id.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	var createdAt any
	err := r.queryRow(ctx,
		`INSERT INTO users (name, email) VALUES (?, ?) RETURNING id, created_at`,
		u.Name, nullString(u.Email),
	).Scan(&u.ID, &createdAt)
	if err != nil {
		return core.User{}, r.wrap("create user", err)
	}
	if u.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.User{}, r.wrap("create user", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "name", u.Name)
	return u, nil
}

// ListUsers returns every user ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.query(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, r.wrap("list users", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, r.wrap("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("list users", err)
	}
	return users, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.queryRow(ctx, `SELECT id, name, email, created_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &Error{Op: "get user", Kind: ErrNotFound, Err: err}
	}
	if err != nil {
		return core.User{}, r.wrap("get user", err)
	}
	return u, nil
}

// DeleteUser removes the user; its expenses go with it.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return r.wrap("delete user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Op: "delete user", Kind: ErrNotFound, Err: sql.ErrNoRows}
	}

	slog.InfoContext(ctx, "User deleted", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (core.User, error) {
	var (
		u         core.User
		email     sql.NullString
		createdAt any
	)
	if err := s.Scan(&u.ID, &u.Name, &email, &createdAt); err != nil {
		return core.User{}, err
	}
	u.Email = email.String
	var err error
	if u.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.User{}, err
	}
	return u, nil
}
