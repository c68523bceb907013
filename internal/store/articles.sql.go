package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lokswami/newsroom/internal/model"
)

const articleColumns = `id, title, slug, content, summary, tags, seo_title, seo_meta_description, seo_keywords,
status, author_id, category_id, featured_image, pdf_url, published_at, view_count, version, created_at, updated_at`

func scanArticle(s scanner) (model.Article, error) {
	var (
		a                      model.Article
		summary, tags, keyword string
		status                 string
		publishedAt            sql.NullTime
	)
	err := s.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &summary, &tags, &a.SEO.Title, &a.SEO.MetaDescription, &keyword,
		&status, &a.AuthorID, &a.CategoryID, &a.FeaturedImage, &a.PDFURL, &publishedAt, &a.ViewCount, &a.Version,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Summary = decodeList(summary)
	a.Tags = decodeList(tags)
	a.SEO.Keywords = decodeList(keyword)
	a.Status = model.Status(status)
	a.PublishedAt = timePtr(publishedAt)
	return a, nil
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	defer func() { _ = rows.Close() }()

	var items []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const createArticle = `INSERT INTO articles (` + articleColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?)
RETURNING ` + articleColumns

// CreateArticle inserts an article row. Version starts at 1 and view_count at 0.
func (q *Queries) CreateArticle(ctx context.Context, a model.Article) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, createArticle,
		a.ID, a.Title, a.Slug, a.Content, encodeList(a.Summary), encodeList(a.Tags),
		a.SEO.Title, a.SEO.MetaDescription, encodeList(a.SEO.Keywords),
		string(a.Status), a.AuthorID, a.CategoryID, a.FeaturedImage, a.PDFURL, nullTime(a.PublishedAt),
		a.CreatedAt, a.UpdatedAt)
	return scanArticle(row)
}

const getArticleByID = `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`

func (q *Queries) GetArticleByID(ctx context.Context, id string) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx, getArticleByID, id))
}

const getArticleBySlug = `SELECT ` + articleColumns + ` FROM articles WHERE slug = ?`

func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx, getArticleBySlug, slug))
}

const slugTaken = `SELECT EXISTS(SELECT 1 FROM articles WHERE slug = ? AND id != ?)`

// SlugTaken reports whether slug belongs to an article other than excludeID.
// Pass an empty excludeID for new articles.
func (q *Queries) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := q.db.QueryRowContext(ctx, slugTaken, slug, excludeID).Scan(&taken)
	return taken, err
}

const updateArticleVersioned = `UPDATE articles SET
    title = ?, slug = ?, content = ?, summary = ?, tags = ?,
    seo_title = ?, seo_meta_description = ?, seo_keywords = ?,
    status = ?, category_id = ?, featured_image = ?, pdf_url = ?, published_at = ?,
    version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`

// UpdateArticleVersioned writes every mutable column of a, provided the stored
// version still equals expectedVersion. It returns the number of rows updated,
// which is zero when another writer got there first.
func (q *Queries) UpdateArticleVersioned(ctx context.Context, a model.Article, expectedVersion int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateArticleVersioned,
		a.Title, a.Slug, a.Content, encodeList(a.Summary), encodeList(a.Tags),
		a.SEO.Title, a.SEO.MetaDescription, encodeList(a.SEO.Keywords),
		string(a.Status), a.CategoryID, a.FeaturedImage, a.PDFURL, nullTime(a.PublishedAt),
		a.UpdatedAt, a.ID, expectedVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteArticleVersioned = `DELETE FROM articles WHERE id = ? AND version = ?`

func (q *Queries) DeleteArticleVersioned(ctx context.Context, id string, expectedVersion int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteArticleVersioned, id, expectedVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const incrementViewCount = `UPDATE articles SET view_count = view_count + 1
WHERE slug = ? AND status = 'PUBLISHED'`

// IncrementViewCount bumps the view counter of a published article.
// The version column is left alone so readers never conflict with editors.
func (q *Queries) IncrementViewCount(ctx context.Context, slug string) (int64, error) {
	res, err := q.db.ExecContext(ctx, incrementViewCount, slug)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Article list sort orders.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
	SortTitle   = "title"
)

var articleSorts = map[string]string{
	SortNewest:  "COALESCE(published_at, created_at) DESC, id",
	SortOldest:  "COALESCE(published_at, created_at) ASC, id",
	SortPopular: "view_count DESC, id",
	SortTitle:   "title COLLATE NOCASE ASC, id",
}

// ArticleFilter narrows ListArticles and CountArticles. Zero fields are ignored.
type ArticleFilter struct {
	Status     model.Status
	CategoryID string
	AuthorID   string
	Tag        string
	Search     string
	Sort       string
	Limit      int64
	Offset     int64
}

func (f ArticleFilter) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AuthorID != "" {
		clauses = append(clauses, "author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.Tag != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(articles.tags) WHERE json_each.value = ?)")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Tag)))
	}
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListArticles returns one page of articles matching f.
func (q *Queries) ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	where, args := f.where()
	order, ok := articleSorts[f.Sort]
	if !ok {
		order = articleSorts[SortNewest]
	}
	query := `SELECT ` + articleColumns + ` FROM articles` + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

// CountArticles returns the number of articles matching f, ignoring paging.
func (q *Queries) CountArticles(ctx context.Context, f ArticleFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`+where, args...).Scan(&n)
	return n, err
}

const listTrendingArticles = `SELECT ` + articleColumns + ` FROM articles
WHERE status = 'PUBLISHED' AND published_at >= ?
ORDER BY view_count DESC, published_at DESC
LIMIT ?`

// ListTrendingArticles returns the most viewed articles published since since.
func (q *Queries) ListTrendingArticles(ctx context.Context, since time.Time, limit int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, listTrendingArticles, since, limit)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

const listRelatedArticles = `SELECT ` + articleColumns + ` FROM articles
WHERE status = 'PUBLISHED' AND id != ?
  AND (category_id = ? OR EXISTS (
        SELECT 1 FROM json_each(articles.tags) a
        JOIN json_each(?) b ON a.value = b.value))
ORDER BY published_at DESC
LIMIT ?`

// ListRelatedArticles returns published articles sharing a's category or any of its tags.
func (q *Queries) ListRelatedArticles(ctx context.Context, a model.Article, limit int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, listRelatedArticles, a.ID, a.CategoryID, encodeList(a.Tags), limit)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

const listSlugsWithBase = `SELECT slug FROM articles
WHERE (slug = ? OR slug LIKE ? ESCAPE '\') AND id != ?`

// ListSlugsWithBase returns the slugs equal to base or of the form base-N,
// ignoring the article excludeID.
func (q *Queries) ListSlugsWithBase(ctx context.Context, base, excludeID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSlugsWithBase, base, escapeLike(base)+"-%", excludeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}
