// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lokswami/newsroom/internal/metrics"
)

// Delivery configuration constants
const (
	RequestTimeout = 10 * time.Second // HTTP request timeout
	MaxBackoff     = 5 * time.Minute  // Maximum backoff delay
	MaxResponseLen = 10 * 1024        // Maximum response body read (10KB)
	UserAgent      = "Newsroom-Webhook/1.0"
)

// Delivery headers.
const (
	HeaderSignature  = "X-Webhook-Signature"
	HeaderEvent      = "X-Webhook-Event"
	HeaderDeliveryID = "X-Webhook-Delivery-ID"
)

// httpClient is the shared HTTP client with appropriate timeouts.
var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}

// process delivers dl, retrying network errors, 408, 429 and 5xx responses
// with exponential backoff.
func (d *Dispatcher) process(ctx context.Context, dl *delivery) {
	backoff := retry.WithCappedDuration(MaxBackoff, retry.NewExponential(d.retryBase))
	backoff = retry.WithMaxRetries(uint64(d.maxRetries), backoff)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := d.attempt(ctx, dl)
		if err != nil && ctx.Err() == nil && shouldRetry(err) {
			d.logger.Debug("webhook delivery failed, retrying",
				"delivery_id", dl.id, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues(dl.event, "failed").Inc()
		d.logger.Warn("webhook delivery failed",
			"delivery_id", dl.id,
			"event", dl.event,
			"url", dl.endpoint.URL,
			"attempts", attempts,
			"error", err)
		return
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues(dl.event, "delivered").Inc()
	d.logger.Info("webhook delivered successfully",
		"delivery_id", dl.id, "event", dl.event, "url", dl.endpoint.URL, "attempts", attempts)
}

// attempt performs the actual HTTP POST request.
func (d *Dispatcher) attempt(ctx context.Context, dl *delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dl.endpoint.URL, bytes.NewReader(dl.payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderEvent, dl.event)
	req.Header.Set(HeaderDeliveryID, dl.id)
	if dl.endpoint.Secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+GenerateSignature(dl.payload, dl.endpoint.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &networkError{err}
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &statusError{code: resp.StatusCode}
}

type networkError struct{ err error }

func (e *networkError) Error() string { return "request failed: " + e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

// shouldRetry reports whether a failed attempt may succeed later. Client
// errors other than 408 and 429 are final.
func shouldRetry(err error) bool {
	var ne *networkError
	if errors.As(err, &ne) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests
	}
	return false
}
