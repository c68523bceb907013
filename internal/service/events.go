// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business logic that sits between the HTTP
// handlers and the store: accounts, categories, article reads and the audit
// event log. Article writes go through the workflow engine instead.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, userID, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    sql.NullString{String: userID, Valid: userID != ""},
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Debug("failed to log event", "error", err, "message", message)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, userID, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogUserEvent logs an account management event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message, userID, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, ipAddress, metadata)
}

// LogCategoryEvent logs a category change.
func (s *EventService) LogCategoryEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryCategory, message, userID, "", metadata)
}

// LogArticleEvent logs an article change. It satisfies workflow.Auditor.
func (s *EventService) LogArticleEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryArticle, message, userID, "", metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, "", "", metadata)
}

// ListEvents returns recent events, newest first.
func (s *EventService) ListEvents(ctx context.Context, level, category string, limit, offset int64) ([]model.Event, error) {
	return s.queries.ListEvents(ctx, store.ListEventsParams{
		Level:    level,
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
}

// DeleteOldEvents removes events older than olderThan and returns how many.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().UTC().Add(-olderThan))
}
