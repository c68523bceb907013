// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lokswami/newsroom/internal/middleware"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	AIEnabled bool             `json:"aiEnabled"`
}

// Check is a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /api/health. It reports 503 when the database cannot
// be reached.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	db := h.checkDatabase(r.Context())

	status := HealthStatus{
		Status:    "healthy",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		Checks:    map[string]Check{"database": db},
		AIEnabled: h.assistant != nil && h.assistant.Enabled(),
	}

	if db.Status != "healthy" {
		status.Status = "degraded"
		middleware.WriteEnvelope(w, http.StatusServiceUnavailable, middleware.Envelope{
			Data:  status,
			Error: "Service degraded",
			Code:  middleware.CodeInternalError,
		})
		return
	}
	WriteSuccess(w, http.StatusOK, status, "")
}

// checkDatabase verifies database connectivity.
func (h *Handler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: "unhealthy", Message: "database unreachable", Latency: latency.String()}
	}
	return Check{Status: "healthy", Latency: latency.String()}
}
