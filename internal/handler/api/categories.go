// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lokswami/newsroom/internal/metrics"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/service"
)

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, items, "")
}

// GetCategory handles GET /api/categories/{slug}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, c, "")
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.categories.Create(r.Context(), *middleware.GetActor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, c, "Category created successfully")
}

// UpdateCategory handles PATCH /api/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.categories.Update(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, c, "Category updated successfully")
}

// DeleteCategory handles DELETE /api/categories/{id}. Categories that still
// have articles are refused with CATEGORY_HAS_ARTICLES.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, nil, "Category deleted successfully")
}

// RecountCategory handles POST /api/categories/{id}/recount.
func (h *Handler) RecountCategory(w http.ResponseWriter, r *http.Request) {
	res, err := h.categories.Recount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Corrected() {
		metrics.CounterCorrectionsTotal.Inc()
		slog.Warn("category article count corrected",
			"category", "category",
			"category_id", res.CategoryID,
			"stored", res.Stored,
			"actual", res.Actual)
	}
	WriteSuccess(w, http.StatusOK, res, "")
}
