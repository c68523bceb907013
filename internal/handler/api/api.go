// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers for the newsroom.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lokswami/newsroom/internal/ai"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/version"
	"github.com/lokswami/newsroom/internal/workflow"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators the handlers need.
type Deps struct {
	DB         *sql.DB
	Users      *service.UserService
	Articles   *service.ArticleService
	Categories *service.CategoryService
	Engine     *workflow.Engine
	Assistant  *ai.Assistant
	// LoginProtection locks accounts after repeated failed logins. Nil
	// disables lockout.
	LoginProtection *middleware.LoginProtection
	Version         version.Info
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db         *sql.DB
	users      *service.UserService
	articles   *service.ArticleService
	categories *service.CategoryService
	engine     *workflow.Engine
	assistant  *ai.Assistant
	login      *middleware.LoginProtection
	version    version.Info
	startTime  time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		db:         d.DB,
		users:      d.Users,
		articles:   d.Articles,
		categories: d.Categories,
		engine:     d.Engine,
		assistant:  d.Assistant,
		login:      d.LoginProtection,
		version:    d.Version,
		startTime:  time.Now(),
	}
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	middleware.WriteEnvelope(w, statusCode, middleware.Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// WriteValidationError writes a 400 response with per-field messages.
func WriteValidationError(w http.ResponseWriter, fields map[string]string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, workflow.CodeValidation, "Validation failed", fields)
}

// decodeJSON reads the request body into dst. A malformed body is reported as
// a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "Invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			msg = "Request body is required"
		}
		WriteValidationError(w, map[string]string{"body": msg})
		return false
	}
	return true
}

// bind decodes and validates a request body. It writes the error response
// and returns false on failure.
func bind[T validation.Validatable](w http.ResponseWriter, r *http.Request, dst T) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := dst.Validate(); err != nil {
		writeError(w, r, validationError(err))
		return false
	}
	return true
}

// validationError converts ozzo validation errors into a VALIDATION_ERROR.
func validationError(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		fields[field] = ferr.Error()
	}
	return workflow.ValidationError(fields)
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
