// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, rate limiting and request instrumentation.
package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes written by the middleware.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeAccountInactive = "ACCOUNT_INACTIVE"
	CodeAccountLocked   = "ACCOUNT_LOCKED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeAuthRateLimited = "AUTH_RATE_LIMIT"
	CodeAIRateLimited   = "AI_RATE_LIMIT"
	CodeRequestTimeout  = "REQUEST_TIMEOUT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// WriteEnvelope writes env as JSON with the given status code.
func WriteEnvelope(w http.ResponseWriter, statusCode int, env Envelope) {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteEnvelope(w, statusCode, Envelope{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
