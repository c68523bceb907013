// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lokswami/newsroom/internal/cache"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/workflow"
)

// Listing limits.
const (
	DefaultPageLimit     = 10
	MaxPageLimit         = 50
	DefaultTrendingLimit = 5
	MaxTrendingLimit     = 20
	DefaultTrendingDays  = 7
	MaxTrendingDays      = 90
	DefaultRelatedLimit  = 4
	MaxRelatedLimit      = 12
)

// ListQuery selects a page of articles.
type ListQuery struct {
	Page     int64
	Limit    int64
	Status   model.Status
	Category string // category slug
	AuthorID string
	Tag      string
	Search   string
	Sort     string
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page    int64 `json:"page"`
	Limit   int64 `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"hasMore"`
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ArticleService serves article reads. Writes go through workflow.Engine.
type ArticleService struct {
	engine     *workflow.Engine
	queries    *store.Queries
	categories *CategoryService
	trending   *cache.Typed[[]model.Article]
	now        func() time.Time
}

// NewArticleService creates an ArticleService.
func NewArticleService(db *sql.DB, engine *workflow.Engine, categories *CategoryService, c cache.Cache, ttl time.Duration) *ArticleService {
	return &ArticleService{
		engine:     engine,
		queries:    store.New(db),
		categories: categories,
		trending:   cache.NewTyped[[]model.Article](c, "trending", ttl),
		now:        time.Now,
	}
}

// List returns a page of articles. Anonymous callers, and callers that do not
// ask for a status, only see PUBLISHED articles.
func (s *ArticleService) List(ctx context.Context, viewer *model.Actor, q ListQuery) (Page[model.Article], error) {
	page, limit := normalizePage(q.Page, q.Limit)

	filter := store.ArticleFilter{
		Status:   model.StatusPublished,
		AuthorID: q.AuthorID,
		Tag:      strings.ToLower(strings.TrimSpace(q.Tag)),
		Search:   strings.TrimSpace(q.Search),
		Sort:     q.Sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if viewer != nil && q.Status != "" {
		if !q.Status.Valid() {
			return Page[model.Article]{}, workflow.ValidationError(map[string]string{"status": "unknown status"})
		}
		filter.Status = q.Status
	}
	if q.Category != "" {
		c, err := s.categories.GetBySlug(ctx, q.Category)
		if err != nil {
			return Page[model.Article]{}, err
		}
		filter.CategoryID = c.ID
	}

	items, err := s.queries.ListArticles(ctx, filter)
	if err != nil {
		return Page[model.Article]{}, fmt.Errorf("listing articles: %w", err)
	}
	total, err := s.queries.CountArticles(ctx, filter)
	if err != nil {
		return Page[model.Article]{}, fmt.Errorf("counting articles: %w", err)
	}
	return NewPage(items, page, limit, total), nil
}

// Get returns an article by ID regardless of status.
func (s *ArticleService) Get(ctx context.Context, id string) (model.Article, error) {
	return s.engine.Get(ctx, id)
}

// GetBySlug returns an article and counts the view when it is published.
// Unpublished articles are hidden from anonymous callers.
func (s *ArticleService) GetBySlug(ctx context.Context, viewer *model.Actor, slug string) (model.Article, error) {
	a, err := s.queries.GetArticleBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return model.Article{}, notFound(err, workflow.ErrArticleNotFound)
	}
	if a.Status != model.StatusPublished {
		if viewer == nil {
			return model.Article{}, workflow.ErrArticleNotFound
		}
		return a, nil
	}

	if err := s.engine.RecordView(ctx, a.Slug); err != nil {
		// The article may have been unpublished since it was read.
		if !errors.Is(err, workflow.ErrArticleNotFound) {
			slog.Warn("failed to record article view", "slug", a.Slug, "error", err)
		}
		return a, nil
	}
	a.ViewCount++
	return a, nil
}

// Trending returns the most viewed articles published in the last days days.
func (s *ArticleService) Trending(ctx context.Context, days, limit int64) ([]model.Article, error) {
	days = clamp(days, DefaultTrendingDays, MaxTrendingDays)
	limit = clamp(limit, DefaultTrendingLimit, MaxTrendingLimit)

	key := fmt.Sprintf("%d:%d", days, limit)
	return s.trending.GetOrLoad(ctx, key, func(ctx context.Context) ([]model.Article, error) {
		since := s.now().UTC().AddDate(0, 0, -int(days))
		items, err := s.queries.ListTrendingArticles(ctx, since, limit)
		if err != nil {
			return nil, fmt.Errorf("listing trending articles: %w", err)
		}
		if items == nil {
			items = []model.Article{}
		}
		return items, nil
	})
}

// Related returns published articles sharing the category or a tag with
// the published article id.
func (s *ArticleService) Related(ctx context.Context, id string, limit int64) ([]model.Article, error) {
	limit = clamp(limit, DefaultRelatedLimit, MaxRelatedLimit)

	a, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.StatusPublished {
		return nil, workflow.ErrArticleNotFound
	}

	items, err := s.queries.ListRelatedArticles(ctx, a, limit)
	if err != nil {
		return nil, fmt.Errorf("listing related articles: %w", err)
	}
	if items == nil {
		items = []model.Article{}
	}
	return items, nil
}

// History returns the status changes of an article, oldest first.
func (s *ArticleService) History(ctx context.Context, id string) ([]model.StatusChange, error) {
	if _, err := s.engine.Get(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.queries.ListStatusChanges(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing status changes: %w", err)
	}
	if items == nil {
		items = []model.StatusChange{}
	}
	return items, nil
}

// CountsChanged drops cached trending lists once the published set changes.
func (s *ArticleService) CountsChanged(ctx context.Context, _ []string) {
	if err := s.trending.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate trending cache", "error", err)
	}
}

// NewPage wraps items with pagination computed from total.
func NewPage[T any](items []T, page, limit, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int64(0)
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{
		Items: items,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			Pages:   pages,
			HasMore: page < pages,
		},
	}
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	return page, clamp(limit, DefaultPageLimit, MaxPageLimit)
}

// clamp replaces non-positive values with def and caps the rest at max.
func clamp(v, def, max int64) int64 {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
