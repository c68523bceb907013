package store

import (
	"context"
	"time"

	"github.com/lokswami/newsroom/internal/model"
)

const categoryColumns = `id, name, slug, description, color, article_count, created_at, updated_at`

func scanCategory(s scanner) (model.Category, error) {
	var c model.Category
	err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.ArticleCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams holds the columns of a new category row.
type CreateCategoryParams struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const createCategory = `INSERT INTO categories (id, name, slug, description, color, article_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory,
		arg.ID, arg.Name, arg.Slug, arg.Description, arg.Color, arg.CreatedAt, arg.UpdatedAt)
	return scanCategory(row)
}

const getCategoryByID = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategoryByID(ctx context.Context, id string) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryByID, id))
}

const getCategoryBySlug = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ?`

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryBySlug, slug))
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// UpdateCategoryParams holds the editable category columns.
// article_count is deliberately absent: only the workflow moves it.
type UpdateCategoryParams struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	UpdatedAt   time.Time
}

const updateCategory = `UPDATE categories SET name = ?, slug = ?, description = ?, color = ?, updated_at = ?
WHERE id = ?
RETURNING ` + categoryColumns

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, updateCategory,
		arg.Name, arg.Slug, arg.Description, arg.Color, arg.UpdatedAt, arg.ID))
}

const deleteUnusedCategory = `DELETE FROM categories WHERE id = ? AND article_count = 0`

// DeleteUnusedCategory deletes the category only while its article_count is zero.
// It returns the number of rows removed.
func (q *Queries) DeleteUnusedCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUnusedCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const adjustCategoryCount = `UPDATE categories SET article_count = article_count + ?
WHERE id = ? AND article_count + ? >= 0`

// AdjustCategoryCount applies delta to article_count in place.
// It returns the number of rows touched. Zero means the category is missing or
// the delta would take the count below zero; ClampCategoryCount tells the two apart.
func (q *Queries) AdjustCategoryCount(ctx context.Context, id string, delta int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, adjustCategoryCount, delta, id, delta)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clampCategoryCount = `UPDATE categories SET article_count = 0 WHERE id = ?`

// ClampCategoryCount sets article_count to zero and returns the rows touched.
func (q *Queries) ClampCategoryCount(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, clampCategoryCount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setCategoryCount = `UPDATE categories SET article_count = ? WHERE id = ?`

func (q *Queries) SetCategoryCount(ctx context.Context, id string, count int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, setCategoryCount, count, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countPublishedInCategory = `SELECT COUNT(*) FROM articles WHERE category_id = ? AND status = 'PUBLISHED'`

func (q *Queries) CountPublishedInCategory(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPublishedInCategory, categoryID).Scan(&n)
	return n, err
}

const countArticlesInCategory = `SELECT COUNT(*) FROM articles WHERE category_id = ?`

func (q *Queries) CountArticlesInCategory(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countArticlesInCategory, categoryID).Scan(&n)
	return n, err
}

const listCategoryIDs = `SELECT id FROM categories ORDER BY id`

func (q *Queries) ListCategoryIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryIDs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
