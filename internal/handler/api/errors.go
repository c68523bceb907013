// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lokswami/newsroom/internal/ai"
	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/workflow"
)

// statusByCode maps error codes to HTTP statuses.
var statusByCode = map[string]int{
	workflow.CodeInvalidTransition:      http.StatusConflict,
	workflow.CodeForbidden:              http.StatusForbidden,
	workflow.CodeArticleNotFound:        http.StatusNotFound,
	workflow.CodeCategoryNotFound:       http.StatusNotFound,
	workflow.CodeCategoryInUse:          http.StatusConflict,
	workflow.CodeSlugExhausted:          http.StatusServiceUnavailable,
	workflow.CodeConcurrentModification: http.StatusConflict,
	workflow.CodeValidation:             http.StatusBadRequest,

	service.CodeUserExists:         http.StatusConflict,
	service.CodeUserNotFound:       http.StatusNotFound,
	service.CodeInvalidCredentials: http.StatusUnauthorized,
	service.CodeAccountInactive:    http.StatusForbidden,
	service.CodeCategoryExists:     http.StatusConflict,

	ai.CodeDisabled:    http.StatusServiceUnavailable,
	ai.CodeUnavailable: http.StatusBadGateway,
	ai.CodeRateLimited: http.StatusTooManyRequests,
}

// writeError renders err as an error envelope. Errors without a known code
// are logged and reported as INTERNAL_ERROR without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var we *workflow.Error
	if errors.As(err, &we) {
		if status, ok := statusByCode[we.Code]; ok {
			middleware.WriteAPIError(w, status, we.Code, we.Message, we.Fields)
			return
		}
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		middleware.WriteAPIError(w, http.StatusUnauthorized, middleware.CodeTokenExpired, "Token has expired", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		middleware.WriteAPIError(w, http.StatusUnauthorized, middleware.CodeInvalidToken, "Invalid token", nil)
	default:
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()))
		middleware.WriteAPIError(w, http.StatusInternalServerError, middleware.CodeInternalError, "Internal server error", nil)
	}
}
