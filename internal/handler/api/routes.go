// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
)

// RouterConfig holds the middleware the API routes are wrapped in.
type RouterConfig struct {
	Authenticator *middleware.Authenticator
	// APILimiter applies to every route, AILimiter additionally to /ai.
	// Nil disables the limit.
	APILimiter *middleware.RateLimiter
	AILimiter  *middleware.RateLimiter
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r chi.Router, cfg RouterConfig) {
	authn := cfg.Authenticator
	staff := middleware.RequireRole(model.RoleEditor, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(limit(cfg.APILimiter))
		r.NotFound(NotFound)
		r.MethodNotAllowed(MethodNotAllowed)

		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.login != nil {
					r.Use(h.login.Middleware())
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
				r.Post("/refresh", h.Refresh)
			})
			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.Get("/me", h.Me)
				r.Patch("/me", h.UpdateMe)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authn.Authenticate, admin)
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Patch("/{id}/active", h.SetUserActive)
		})

		r.Route("/articles", func(r chi.Router) {
			// Public reads
			r.With(authn.OptionalAuth).Get("/", h.ListArticles)
			r.Get("/trending", h.TrendingArticles)
			r.With(authn.OptionalAuth).Get("/slug/{slug}", h.GetArticleBySlug)
			r.Get("/{id}/related", h.RelatedArticles)

			// Staff
			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.Post("/", h.CreateArticle)
				r.Get("/{id}", h.GetArticle)
				r.Patch("/{id}", h.UpdateArticle)
				r.Delete("/{id}", h.DeleteArticle)
				r.Get("/{id}/history", h.ArticleHistory)
				r.Post("/{id}/transitions", h.TransitionArticle)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/{slug}", h.GetCategory)

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.With(staff).Post("/", h.CreateCategory)
				r.With(staff).Patch("/{id}", h.UpdateCategory)
				r.With(admin).Delete("/{id}", h.DeleteCategory)
				r.With(admin).Post("/{id}/recount", h.RecountCategory)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Use(authn.Authenticate, limit(cfg.AILimiter))
			r.Post("/summarize", h.Summarize)
			r.Post("/tags", h.SuggestTags)
			r.Post("/seo", h.GenerateSEO)
			r.Post("/translate", h.Translate)
			r.Post("/complete", h.CompleteAssist)
		})
	})
}

// limit returns rl's middleware, or a pass-through when rl is nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware()
}

// NotFound writes a JSON 404 for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Route "+r.URL.Path+" not found", nil)
}

// MethodNotAllowed writes a JSON 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path, nil)
}
