// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/lokswami/newsroom/internal/cache"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/workflow"
)

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const defaultCategoryColor = "#3B82F6"

// CategoryInput holds the editable fields of a category.
// Nil fields keep their current value on update.
type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// CategoryService manages categories. Listings are cached; the cache is
// dropped whenever a category or its article count changes.
type CategoryService struct {
	queries *store.Queries
	counter *workflow.Counter
	list    *cache.Typed[[]model.Category]
	events  *EventService
}

// NewCategoryService creates a CategoryService. c may be shared with other services.
func NewCategoryService(db *sql.DB, c cache.Cache, ttl time.Duration, events *EventService) *CategoryService {
	return &CategoryService{
		queries: store.New(db),
		counter: workflow.NewCounter(db),
		list:    cache.NewTyped[[]model.Category](c, "categories", ttl),
		events:  events,
	}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.list.GetOrLoad(ctx, "all", func(ctx context.Context) ([]model.Category, error) {
		items, err := s.queries.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		if items == nil {
			items = []model.Category{}
		}
		return items, nil
	})
}

// GetBySlug returns one category.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (model.Category, error) {
	c, err := s.queries.GetCategoryBySlug(ctx, strings.ToLower(slug))
	return c, notFound(err, workflow.ErrCategoryNotFound)
}

// GetByID returns one category.
func (s *CategoryService) GetByID(ctx context.Context, id string) (model.Category, error) {
	c, err := s.queries.GetCategoryByID(ctx, id)
	return c, notFound(err, workflow.ErrCategoryNotFound)
}

// Create adds a category. The slug defaults to one derived from the name.
func (s *CategoryService) Create(ctx context.Context, actor model.Actor, in CategoryInput) (model.Category, error) {
	c := model.Category{Color: defaultCategoryColor}
	applyCategoryInput(&c, in)
	if c.Slug == "" && c.Name != "" {
		c.Slug = workflow.Slugify(c.Name)
	}
	if err := validateCategory(c); err != nil {
		return model.Category{}, err
	}

	now := time.Now().UTC()
	created, err := s.queries.CreateCategory(ctx, store.CreateCategoryParams{
		ID:          uuid.NewString(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Category{}, ErrCategoryExists
		}
		return model.Category{}, fmt.Errorf("creating category: %w", err)
	}

	s.invalidate(ctx)
	s.audit(ctx, "Category created", actor.ID, map[string]any{"category_id": created.ID, "slug": created.Slug})
	return created, nil
}

// Update changes the editable fields of a category. The article count is
// never touched here.
func (s *CategoryService) Update(ctx context.Context, actor model.Actor, id string, in CategoryInput) (model.Category, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Category{}, err
	}
	applyCategoryInput(&c, in)
	if err := validateCategory(c); err != nil {
		return model.Category{}, err
	}

	updated, err := s.queries.UpdateCategory(ctx, store.UpdateCategoryParams{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Category{}, ErrCategoryExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, workflow.ErrCategoryNotFound
		}
		return model.Category{}, fmt.Errorf("updating category: %w", err)
	}

	s.invalidate(ctx)
	s.audit(ctx, "Category updated", actor.ID, map[string]any{"category_id": updated.ID})
	return updated, nil
}

// Delete removes a category that no article uses. It fails with
// CATEGORY_HAS_ARTICLES while published articles are counted against it or
// any article still references it.
func (s *CategoryService) Delete(ctx context.Context, actor model.Actor, id string) error {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.HasArticles() {
		return workflow.ErrCategoryInUse
	}

	n, err := s.queries.DeleteUnusedCategory(ctx, id)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return workflow.ErrCategoryInUse
		}
		return fmt.Errorf("deleting category: %w", err)
	}
	if n == 0 {
		// An article was published between the read and the delete.
		return workflow.ErrCategoryInUse
	}

	s.invalidate(ctx)
	s.audit(ctx, "Category deleted", actor.ID, map[string]any{"category_id": id, "slug": c.Slug})
	return nil
}

// Recount repairs one category's article count.
func (s *CategoryService) Recount(ctx context.Context, id string) (workflow.RecountResult, error) {
	res, err := s.counter.Recount(ctx, id)
	if err != nil {
		return res, err
	}
	if res.Corrected() {
		s.invalidate(ctx)
	}
	return res, nil
}

// RecountAll repairs every category and returns the corrected ones.
func (s *CategoryService) RecountAll(ctx context.Context) ([]workflow.RecountResult, error) {
	corrected, err := s.counter.RecountAll(ctx)
	if len(corrected) > 0 {
		s.invalidate(ctx)
	}
	return corrected, err
}

// CountsChanged drops cached listings after the workflow moved a counter.
// It has the workflow.CountListener signature.
func (s *CategoryService) CountsChanged(ctx context.Context, _ []string) {
	s.invalidate(ctx)
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if err := s.list.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate category cache", "error", err)
	}
}

func (s *CategoryService) audit(ctx context.Context, message, userID string, meta map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogCategoryEvent(ctx, model.EventLevelInfo, message, userID, meta)
}

func applyCategoryInput(c *model.Category, in CategoryInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		c.Slug = strings.ToLower(strings.TrimSpace(*in.Slug))
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Color != nil {
		c.Color = strings.TrimSpace(*in.Color)
	}
}

func validateCategory(c model.Category) error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&c.Slug, validation.Required, validation.By(validSlug)),
		validation.Field(&c.Description, validation.RuneLength(0, 500)),
		validation.Field(&c.Color, validation.Required, validation.Match(hexColorPattern).
			Error("must be a hex color like #RGB or #RRGGBB")),
	)
	return validationError(err)
}

func validSlug(v any) error {
	if s, _ := v.(string); s != "" && !workflow.IsValidSlug(s) {
		return validation.NewError("validation_slug_invalid",
			"can only contain lowercase letters and numbers separated by single hyphens")
	}
	return nil
}

// validationError turns ozzo errors into a VALIDATION_ERROR.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for k, v := range errs {
		fields[k] = v.Error()
	}
	return workflow.ValidationError(fields)
}

// notFound maps sql.ErrNoRows to the given domain error.
func notFound(err, domain error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain
	}
	return err
}
