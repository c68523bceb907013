// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// Delta is a change to one category's published-article count.
type Delta struct {
	CategoryID string
	N          int64
}

// CounterDeltas returns the counter changes implied by an article moving from
// before to after. A zero-value Article stands for "does not exist", so
// creation and deletion use the same rule. Net-zero changes are omitted.
func CounterDeltas(before, after model.Article) []Delta {
	var deltas []Delta
	add := func(id string, n int64) {
		for i := range deltas {
			if deltas[i].CategoryID == id {
				deltas[i].N += n
				return
			}
		}
		deltas = append(deltas, Delta{CategoryID: id, N: n})
	}

	if before.Status == model.StatusPublished && before.CategoryID != "" {
		add(before.CategoryID, -1)
	}
	if after.Status == model.StatusPublished && after.CategoryID != "" {
		add(after.CategoryID, 1)
	}

	out := deltas[:0]
	for _, d := range deltas {
		if d.N != 0 {
			out = append(out, d)
		}
	}
	return out
}

// applyDeltas increments counters in place within the caller's transaction.
// A decrement below zero means the stored count had already drifted: the
// counter is pinned at zero and the drift is logged for Recount to repair.
func applyDeltas(ctx context.Context, q *store.Queries, deltas []Delta) error {
	for _, d := range deltas {
		n, err := q.AdjustCategoryCount(ctx, d.CategoryID, d.N)
		if err != nil {
			return fmt.Errorf("adjusting count of category %s: %w", d.CategoryID, err)
		}
		if n == 1 {
			continue
		}
		if d.N < 0 {
			n, err = q.ClampCategoryCount(ctx, d.CategoryID)
			if err != nil {
				return fmt.Errorf("clamping count of category %s: %w", d.CategoryID, err)
			}
			if n == 1 {
				slog.Warn("category article count would go negative, clamped to zero",
					"category", model.EventCategoryCategory,
					"category_id", d.CategoryID,
					"delta", d.N,
				)
				continue
			}
		}
		return ErrCategoryNotFound
	}
	return nil
}

// RecountResult describes one category audited by Recount.
type RecountResult struct {
	CategoryID string `json:"categoryId"`
	Stored     int64  `json:"stored"`
	Actual     int64  `json:"actual"`
}

// Corrected reports whether the stored count had drifted.
func (r RecountResult) Corrected() bool {
	return r.Stored != r.Actual
}

// Counter audits and repairs the denormalized category article counts.
type Counter struct {
	db      *sql.DB
	queries *store.Queries
}

// NewCounter creates a Counter.
func NewCounter(db *sql.DB) *Counter {
	return &Counter{db: db, queries: store.New(db)}
}

// Recount recomputes one category's count from the articles table and stores it
// if it differs.
func (c *Counter) Recount(ctx context.Context, categoryID string) (RecountResult, error) {
	res := RecountResult{CategoryID: categoryID}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	q := c.queries.WithTx(tx)

	cat, err := q.GetCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, ErrCategoryNotFound
		}
		return res, fmt.Errorf("loading category: %w", err)
	}
	res.Stored = cat.ArticleCount

	res.Actual, err = q.CountPublishedInCategory(ctx, categoryID)
	if err != nil {
		return res, fmt.Errorf("counting published articles: %w", err)
	}

	if res.Corrected() {
		if _, err := q.SetCategoryCount(ctx, categoryID, res.Actual); err != nil {
			return res, fmt.Errorf("storing count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing recount: %w", err)
	}

	if res.Corrected() {
		slog.Warn("category article count drifted, corrected",
			"category", model.EventCategoryCategory,
			"category_id", categoryID,
			"stored", res.Stored,
			"actual", res.Actual,
		)
	}
	return res, nil
}

// RecountAll runs Recount on every category and returns the ones that were
// corrected.
func (c *Counter) RecountAll(ctx context.Context) ([]RecountResult, error) {
	ids, err := c.queries.ListCategoryIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	var corrected []RecountResult
	for _, id := range ids {
		res, err := c.Recount(ctx, id)
		if errors.Is(err, ErrCategoryNotFound) {
			continue // deleted meanwhile
		}
		if err != nil {
			return corrected, err
		}
		if res.Corrected() {
			corrected = append(corrected, res)
		}
	}
	return corrected, nil
}
