// Package logging provides a slog handler that mirrors warnings and errors
// into the events table so operators can review them through the API.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level  // Minimum level to forward to the events table (default: WARN)
	attrs   []slog.Attr // Attributes added with WithAttrs
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.inner.Enabled(ctx, r.Level) {
		err = h.inner.Handle(ctx, r)
	}
	if r.Level >= h.level {
		h.writeEvent(r)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler. Groups only affect the wrapped handler;
// event metadata stays flat.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeEvent stores r in the events table. It uses a background context so
// the event survives a cancelled request. Failures are dropped: logging them
// would recurse into this handler.
func (h *EventLogHandler) writeEvent(r slog.Record) {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Resolve().Any()
		return true
	})

	category := stringField(fields, "category")
	if category == "" {
		category = inferCategory(r.Message)
	}
	userID := stringField(fields, "user_id")
	delete(fields, "category")

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    sql.NullString{String: userID, Valid: userID != ""},
		Metadata:  encodeMetadata(fields),
		CreatedAt: r.Time.UTC(),
	})
}

// eventLevel converts a slog.Level to an event level.
func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses an event category from the message text.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "token"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "article") || strings.Contains(msg, "slug") || strings.Contains(msg, "transition"):
		return model.EventCategoryArticle
	case strings.Contains(msg, "categor") || strings.Contains(msg, "count"):
		return model.EventCategoryCategory
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	case strings.Contains(msg, "ai ") || strings.HasPrefix(msg, "ai") || strings.Contains(msg, "openai"):
		return model.EventCategoryAI
	default:
		return model.EventCategorySystem
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// encodeMetadata renders fields as a JSON object. Values that cannot be
// marshaled, such as errors, are stored as their string form.
func encodeMetadata(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	for k, v := range fields {
		switch val := v.(type) {
		case error:
			fields[k] = val.Error()
		case string, bool, int64, uint64, float64, nil:
		default:
			if _, err := json.Marshal(val); err != nil {
				fields[k] = slog.AnyValue(val).String()
			}
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
