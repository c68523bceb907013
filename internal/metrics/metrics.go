// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics provides Prometheus metrics for the newsroom API.
// Metrics are organized by domain: HTTP requests, the publication workflow,
// the AI assistant, webhooks and the database pool.
package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lokswami/newsroom/internal/model"
)

const namespace = "newsroom"

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Workflow metrics
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Status transition requests by source status, target status, and outcome",
		},
		[]string{"from", "to", "outcome"},
	)

	WriteConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "write_conflicts_total",
			Help:      "Optimistic article writes that lost to a concurrent writer and were retried",
		},
	)

	SlugCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "slug_collisions_total",
			Help:      "Article inserts or renames rejected by the slug unique index",
		},
	)

	CounterCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "counter_corrections_total",
			Help:      "Category article counts repaired by a recount",
		},
	)

	// AI assistant metrics
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "AI assistant calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "AI assistant call duration in seconds, retries included",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"operation"},
	)

	// Webhook metrics
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by event type and result",
		},
		[]string{"event", "result"},
	)

	// Database metrics
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Database connection pool stats",
		},
		[]string{"state"},
	)
)

// WorkflowObserver records workflow engine events. It satisfies workflow.Observer.
type WorkflowObserver struct{}

// ObserveTransition counts one transition request.
func (WorkflowObserver) ObserveTransition(from, to model.Status, outcome string) {
	TransitionsTotal.WithLabelValues(string(from), string(to), outcome).Inc()
}

// ObserveConflict counts one lost optimistic write.
func (WorkflowObserver) ObserveConflict() {
	WriteConflictsTotal.Inc()
}

// ObserveSlugCollision counts one slug unique index violation.
func (WorkflowObserver) ObserveSlugCollision() {
	SlugCollisionsTotal.Inc()
}

// ObserveAICall records one AI assistant call.
func ObserveAICall(operation string, err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	AIRequestsTotal.WithLabelValues(operation, result).Inc()
	AIRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// StatsProvider is implemented by *sql.DB.
type StatsProvider interface {
	Stats() sql.DBStats
}

// PoolStatsCollector collects database pool statistics periodically.
type PoolStatsCollector struct {
	provider StatsProvider
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoolStatsCollector creates a new pool stats collector.
func NewPoolStatsCollector(provider StatsProvider) *PoolStatsCollector {
	return &PoolStatsCollector{
		provider: provider,
		stopChan: make(chan struct{}),
	}
}

// Start begins collecting pool stats every interval.
func (c *PoolStatsCollector) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *PoolStatsCollector) collect() {
	stats := c.provider.Stats()
	DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	DBConnections.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
}

// Stop stops the pool stats collector.
func (c *PoolStatsCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}
