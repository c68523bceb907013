// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lokswami/newsroom/internal/metrics"
)

// retryable reports whether a failed call may succeed if repeated: rate
// limits, upstream 5xx and transport failures.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == 0 ||
		pe.StatusCode == http.StatusTooManyRequests ||
		pe.StatusCode >= http.StatusInternalServerError
}

// call sends req to the provider with the assistant's timeout and bounded
// exponential backoff, and returns the reply text.
func (a *Assistant) call(ctx context.Context, operation string, req ChatRequest) (string, error) {
	if a.provider == nil {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	backoff := retry.WithMaxRetries(uint64(a.maxRetries), retry.NewExponential(a.retryBase))

	var content string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := a.provider.ChatCompletion(ctx, req)
		if err != nil {
			if retryable(err) {
				slog.Warn("ai call failed, retrying", "operation", operation, "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		content = resp.Content
		return nil
	})
	metrics.ObserveAICall(operation, err, time.Since(start))
	if err == nil {
		return content, nil
	}

	slog.Error("ai call failed", "operation", operation, "attempts", attempt, "error", err)
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	return "", ErrUnavailable
}
