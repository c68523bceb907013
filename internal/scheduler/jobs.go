// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lokswami/newsroom/internal/metrics"
	"github.com/lokswami/newsroom/internal/workflow"
)

// Job names.
const (
	JobRecountCategories = "recount_categories"
	JobPruneEvents       = "prune_events"
)

// Recounter repairs the denormalized category article counts.
type Recounter interface {
	RecountAll(ctx context.Context) ([]workflow.RecountResult, error)
}

// EventPruner deletes event log entries older than a cutoff.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Config selects the maintenance jobs to register.
type Config struct {
	RecountSchedule string
	Recounter       Recounter

	// EventRetention of zero disables pruning.
	EventRetention time.Duration
	Events         EventPruner
}

// RegisterMaintenance registers the recount and event retention jobs.
func (s *Scheduler) RegisterMaintenance(cfg Config) error {
	if cfg.Recounter != nil && cfg.RecountSchedule != "" {
		if err := s.Register(JobRecountCategories,
			"Repair drifted category article counts",
			cfg.RecountSchedule,
			RecountJob(cfg.Recounter, s.logger)); err != nil {
			return err
		}
	}
	if cfg.Events != nil && cfg.EventRetention > 0 {
		if err := s.Register(JobPruneEvents,
			"Delete event log entries past retention",
			"@daily",
			PruneEventsJob(cfg.Events, cfg.EventRetention, s.logger)); err != nil {
			return err
		}
	}
	return nil
}

// RecountJob returns a job that recounts every category. Each correction is
// counted and logged at WARN.
func RecountJob(r Recounter, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		corrected, err := r.RecountAll(ctx)
		for _, res := range corrected {
			metrics.CounterCorrectionsTotal.Inc()
			logger.Warn("category article count corrected",
				"category", "category",
				"category_id", res.CategoryID,
				"stored", res.Stored,
				"actual", res.Actual)
		}
		if err != nil {
			return fmt.Errorf("recounting categories: %w", err)
		}
		if len(corrected) == 0 {
			logger.Debug("category article counts consistent")
		}
		return nil
	}
}

// PruneEventsJob returns a job that deletes events older than retention.
func PruneEventsJob(p EventPruner, retention time.Duration, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := p.DeleteOldEvents(ctx, retention)
		if err != nil {
			return fmt.Errorf("pruning events: %w", err)
		}
		if n > 0 {
			logger.Info("pruned old events", "count", n, "retention", retention)
		}
		return nil
	}
}
