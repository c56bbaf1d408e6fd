package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"smartexpense/internal/core"
)

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	var createdAt any
	err := r.queryRow(ctx,
		`INSERT INTO categories (name) VALUES (?) RETURNING id, created_at`, c.Name,
	).Scan(&c.ID, &createdAt)
	if err != nil {
		return core.Category{}, r.wrap("create category", err)
	}
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Category{}, r.wrap("create category", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name)
	return c, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, r.wrap("list categories", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, r.wrap("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("list categories", err)
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &Error{Op: "get category", Kind: ErrNotFound, Err: err}
	}
	if err != nil {
		return core.Category{}, r.wrap("get category", err)
	}
	return c, nil
}

// DeleteCategory fails with ErrCategoryInUse while any expense references it.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		err = r.wrap("delete category", err)
		if errors.Is(err, ErrForeignKey) {
			return &Error{Op: "delete category", Kind: ErrCategoryInUse, Err: err}
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Op: "delete category", Kind: ErrNotFound, Err: sql.ErrNoRows}
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt any
	)
	if err := s.Scan(&c.ID, &c.Name, &createdAt); err != nil {
		return core.Category{}, err
	}
	var err error
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Category{}, err
	}
	return c, nil
}
