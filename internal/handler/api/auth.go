// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/service"
)

// RegisterRequest is the body of POST /auth/register. Any role sent by the
// client is ignored; self-registered accounts are reporters.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !bind(w, r, &req) {
		return
	}

	session, err := h.users.Register(r.Context(), service.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, middleware.ClientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, session, "User registered successfully")
}

// Login handles POST /api/auth/login. Repeated failures lock the account for
// a growing period.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !bind(w, r, &req) {
		return
	}

	if h.login != nil {
		if st := h.login.Status(req.Email); st.Locked {
			writeLocked(w, st.RetryAfter)
			return
		}
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r))
	if err != nil {
		if h.login != nil && errors.Is(err, service.ErrInvalidCredentials) {
			if st := h.login.Fail(req.Email); st.Locked {
				writeLocked(w, st.RetryAfter)
				return
			}
		}
		writeError(w, r, err)
		return
	}

	if h.login != nil {
		h.login.Reset(req.Email)
	}
	WriteSuccess(w, http.StatusOK, session, "Login successful")
}

func writeLocked(w http.ResponseWriter, remaining time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
	middleware.WriteAPIError(w, http.StatusTooManyRequests, middleware.CodeAccountLocked,
		fmt.Sprintf("Too many failed login attempts. Try again in %s", remaining.Round(time.Second)), nil)
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !bind(w, r, &req) {
		return
	}

	session, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, session, "Token refreshed")
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, middleware.GetUser(r), "")
}

// UpdateMe handles PATCH /api/auth/me. Only name and email can be changed.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), middleware.GetUser(r).ID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, user, "Profile updated successfully")
}
