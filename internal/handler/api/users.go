// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/service"
)

// SetActiveRequest is the body of PATCH /users/{id}/active.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

func (r *SetActiveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IsActive, validation.NotNil),
	)
}

// CreateUser handles POST /api/users. Admins choose the role.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.NewUser
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.Create(r.Context(), *middleware.GetActor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, user, "User created successfully")
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := max(queryInt(r, "page", 1), 1)
	limit := min(max(queryInt(r, "limit", 20), 1), 100)

	users, total, err := h.users.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, service.NewPage(users, page, limit, total), "")
}

// SetUserActive handles PATCH /api/users/{id}/active.
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.users.SetActive(r.Context(), *middleware.GetActor(r), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "User deactivated"
	if user.IsActive {
		msg = "User activated"
	}
	WriteSuccess(w, http.StatusOK, user, msg)
}
