// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/workflow"
)

// CreateArticleRequest is the body of POST /articles.
type CreateArticleRequest struct {
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Summary       []string     `json:"summary"`
	Tags          []string     `json:"tags"`
	SEO           model.SEO    `json:"seo"`
	CategoryID    string       `json:"categoryId"`
	FeaturedImage string       `json:"featuredImage"`
	PDFURL        string       `json:"pdfUrl"`
	Status        model.Status `json:"status"`
}

// UpdateArticleRequest is the body of PATCH /articles/{id}. Absent fields
// are left unchanged.
type UpdateArticleRequest struct {
	Title         *string       `json:"title"`
	Content       *string       `json:"content"`
	Summary       *[]string     `json:"summary"`
	Tags          *[]string     `json:"tags"`
	SEO           *model.SEO    `json:"seo"`
	CategoryID    *string       `json:"categoryId"`
	FeaturedImage *string       `json:"featuredImage"`
	PDFURL        *string       `json:"pdfUrl"`
	Status        *model.Status `json:"status"`
	Note          string        `json:"note"`
}

// TransitionRequest is the body of POST /articles/{id}/transitions.
type TransitionRequest struct {
	Status model.Status `json:"status"`
	Note   string       `json:"note"`
}

func (r *TransitionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.By(validStatus)),
		validation.Field(&r.Note, validation.RuneLength(0, 500)),
	)
}

func validStatus(v any) error {
	if s, _ := v.(model.Status); !s.Valid() {
		return validation.NewError("validation_status_invalid", "must be a valid article status")
	}
	return nil
}

// ListArticles handles GET /api/articles.
// Anonymous callers only ever see published articles.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.articles.List(r.Context(), middleware.GetActor(r), service.ListQuery{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", service.DefaultPageLimit),
		Status:   model.Status(strings.ToUpper(q.Get("status"))),
		Category: q.Get("category"),
		AuthorID: q.Get("author"),
		Tag:      q.Get("tag"),
		Search:   strings.TrimSpace(q.Get("search")),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, page, "")
}

// TrendingArticles handles GET /api/articles/trending.
func (h *Handler) TrendingArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.articles.Trending(r.Context(),
		queryInt(r, "days", service.DefaultTrendingDays),
		queryInt(r, "limit", service.DefaultTrendingLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, items, "")
}

// GetArticleBySlug handles GET /api/articles/slug/{slug}. Each public read
// of a published article counts as a view.
func (h *Handler) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.GetBySlug(r.Context(), middleware.GetActor(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, a, "")
}

// GetArticle handles GET /api/articles/{id}.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, a, "")
}

// RelatedArticles handles GET /api/articles/{id}/related.
func (h *Handler) RelatedArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.articles.Related(r.Context(), chi.URLParam(r, "id"),
		queryInt(r, "limit", service.DefaultRelatedLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, items, "")
}

// ArticleHistory handles GET /api/articles/{id}/history.
func (h *Handler) ArticleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.articles.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, items, "")
}

// CreateArticle handles POST /api/articles.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.engine.CreateArticle(r.Context(), *middleware.GetActor(r), workflow.ArticleInput{
		Title:         req.Title,
		Content:       req.Content,
		Summary:       req.Summary,
		Tags:          req.Tags,
		SEO:           req.SEO,
		CategoryID:    req.CategoryID,
		FeaturedImage: req.FeaturedImage,
		PDFURL:        req.PDFURL,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, a, "Article created successfully")
}

// UpdateArticle handles PATCH /api/articles/{id}. A status in the body goes
// through the same transition rules as POST /transitions.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.engine.UpdateArticle(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id"), workflow.ArticlePatch{
		Title:         req.Title,
		Content:       req.Content,
		Summary:       req.Summary,
		Tags:          req.Tags,
		SEO:           req.SEO,
		CategoryID:    req.CategoryID,
		FeaturedImage: req.FeaturedImage,
		PDFURL:        req.PDFURL,
		Status:        req.Status,
		Note:          req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, a, "Article updated successfully")
}

// DeleteArticle handles DELETE /api/articles/{id}.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteArticle(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, nil, "Article deleted successfully")
}

// TransitionArticle handles POST /api/articles/{id}/transitions.
func (h *Handler) TransitionArticle(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if !bind(w, r, &req) {
		return
	}

	a, err := h.engine.RequestTransition(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, a, "Article status updated")
}
