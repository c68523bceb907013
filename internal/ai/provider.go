// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ai provides the draft assistant: summaries, tag and SEO
// suggestions, and Hindi/English translation backed by an
// OpenAI-compatible chat completion API. Suggestions are returned to the
// caller and never written to articles.
package ai

import (
	"context"
	"fmt"
)

// ChatMessage represents a message in a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Model            string
}

// Provider is the interface for text generation backends.
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderError is a failed provider call with the upstream HTTP status.
// A zero StatusCode means the request never got a response.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ai provider: %v", e.Err)
	}
	return fmt.Sprintf("ai provider (status %d): %v", e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
