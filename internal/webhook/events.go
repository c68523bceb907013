// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook notifies external systems when articles go live or are
// taken down.
package webhook

import (
	"time"

	"github.com/lokswami/newsroom/internal/model"
)

// Event types.
const (
	EventArticlePublished   = "article.published"
	EventArticleUnpublished = "article.unpublished"
	EventArticleArchived    = "article.archived"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// ArticleEventData is the payload of article events.
type ArticleEventData struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	CategoryID  string       `json:"categoryId"`
	AuthorID    string       `json:"authorId"`
	From        model.Status `json:"from"`
	To          model.Status `json:"to"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty"`
	ChangedBy   string       `json:"changedBy"`
}

// EventForTransition returns the event type a status change produces, if any.
// Only changes that move an article onto or off the public site are reported.
func EventForTransition(from, to model.Status) (string, bool) {
	switch {
	case to == model.StatusPublished:
		return EventArticlePublished, true
	case from == model.StatusPublished && to == model.StatusArchived:
		return EventArticleArchived, true
	case from == model.StatusPublished:
		return EventArticleUnpublished, true
	}
	return "", false
}
