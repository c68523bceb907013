// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lokswami/newsroom/internal/model"
)

// Endpoint is a receiver of webhook events.
type Endpoint struct {
	URL    string
	Secret string
}

// Config holds dispatcher configuration.
type Config struct {
	Endpoints []Endpoint
	Workers   int // Number of concurrent delivery workers
	QueueSize int
	// MaxRetries bounds retries after the first attempt of a delivery.
	MaxRetries int
	RetryBase  time.Duration
	Client     *http.Client
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		QueueSize:  100,
		MaxRetries: 4,
		RetryBase:  time.Second,
	}
}

// Dispatcher queues events and delivers them to every endpoint from a pool
// of workers.
type Dispatcher struct {
	endpoints  []Endpoint
	client     *http.Client
	logger     *slog.Logger
	queue      chan *delivery
	workers    int
	maxRetries int
	retryBase  time.Duration

	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// delivery is one event bound for one endpoint.
type delivery struct {
	id       string
	event    string
	payload  []byte
	endpoint Endpoint
}

// NewDispatcher creates a new webhook dispatcher.
func NewDispatcher(logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.Client == nil {
		cfg.Client = httpClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		endpoints:  cfg.Endpoints,
		client:     cfg.Client,
		logger:     logger,
		queue:      make(chan *delivery, cfg.QueueSize),
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		done:       make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.workers, "endpoints", len(d.endpoints))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. Deliveries still
// queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	// Deliveries are cut short when the dispatcher stops.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("webhook worker stopping", "worker_id", id)
			return
		case dl := <-d.queue:
			d.process(ctx, dl)
		}
	}
}

// Dispatch queues event for every endpoint. It never blocks: when the queue
// is full the delivery is dropped and logged.
func (d *Dispatcher) Dispatch(event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	if !running {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}
	if len(d.endpoints) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	for _, ep := range d.endpoints {
		dl := &delivery{
			id:       uuid.NewString(),
			event:    event.Type,
			payload:  payload,
			endpoint: ep,
		}
		select {
		case d.queue <- dl:
			d.logger.Debug("delivery queued", "delivery_id", dl.id, "event", event.Type)
		default:
			d.logger.Warn("webhook queue full, delivery dropped", "delivery_id", dl.id, "event", event.Type, "url", ep.URL)
		}
	}
	return nil
}

// OnTransition turns a committed status change into an event. It satisfies
// workflow.TransitionListener.
func (d *Dispatcher) OnTransition(_ context.Context, a model.Article, from model.Status, actorID string) {
	eventType, ok := EventForTransition(from, a.Status)
	if !ok {
		return
	}
	err := d.Dispatch(NewEvent(eventType, ArticleEventData{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		CategoryID:  a.CategoryID,
		AuthorID:    a.AuthorID,
		From:        from,
		To:          a.Status,
		PublishedAt: a.PublishedAt,
		ChangedBy:   actorID,
	}))
	if err != nil {
		d.logger.Error("failed to dispatch article event", "error", err, "article_id", a.ID, "event", eventType)
	}
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
