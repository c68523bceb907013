package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "logging.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func listEvents(t *testing.T, db *sql.DB) []model.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), store.ListEventsParams{Limit: 100})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestEventLogHandler_Levels(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Debug("processing request", "request_id", "abc123")
	logger.Info("server started", "port", 8080)
	logger.Warn("slow query detected", "duration_ms", 5000)
	logger.Error("database connection failed", "host", "localhost")

	events := listEvents(t, db)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	levels := map[string]string{}
	for _, e := range events {
		levels[e.Message] = e.Level
	}
	if levels["slow query detected"] != model.EventLevelWarning {
		t.Errorf("warn level = %q, want %q", levels["slow query detected"], model.EventLevelWarning)
	}
	if levels["database connection failed"] != model.EventLevelError {
		t.Errorf("error level = %q, want %q", levels["database connection failed"], model.EventLevelError)
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))

	logger.Info("server started", "port", 8080)

	if n := len(listEvents(t, db)); n != 1 {
		t.Errorf("expected 1 event with custom INFO level, got %d", n)
	}
}

func TestEventLogHandler_CategoryInference(t *testing.T) {
	testCases := []struct {
		message  string
		expected string
	}{
		{"user authentication failed", model.EventCategoryAuth},
		{"login attempt blocked", model.EventCategoryAuth},
		{"refresh token rejected", model.EventCategoryAuth},
		{"article write conflict", model.EventCategoryArticle},
		{"slug space exhausted", model.EventCategoryArticle},
		{"category counter drift corrected", model.EventCategoryCategory},
		{"user deactivated", model.EventCategoryUser},
		{"AI provider returned 500", model.EventCategoryAI},
		{"unknown error occurred", model.EventCategorySystem},
	}

	for _, tc := range testCases {
		if got := inferCategory(tc.message); got != tc.expected {
			t.Errorf("inferCategory(%q) = %q, want %q", tc.message, got, tc.expected)
		}
	}
}

func TestEventLogHandler_ExplicitCategory(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Error("something happened", "category", model.EventCategoryUser)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryUser {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategoryUser)
	}
}

func TestEventLogHandler_Metadata(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Error("request failed",
		"status_code", 500,
		"path", "C:\\Users\\test \"quoted\"",
		"error", errors.New("boom"),
		"user_id", "u-1",
	)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", events[0].UserID, "u-1")
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("Metadata is not valid JSON: %v (%s)", err, events[0].Metadata)
	}
	if meta["error"] != "boom" {
		t.Errorf("error = %v, want boom", meta["error"])
	}
	if meta["path"] != "C:\\Users\\test \"quoted\"" {
		t.Errorf("path = %v", meta["path"])
	}
	if meta["status_code"] != float64(500) {
		t.Errorf("status_code = %v, want 500", meta["status_code"])
	}
}

func TestEventLogHandler_WithAttrs(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).
		With("category", model.EventCategoryArticle, "component", "workflow")

	logger.Error("service error")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryArticle {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategoryArticle)
	}
	var meta map[string]any
	_ = json.Unmarshal([]byte(events[0].Metadata), &meta)
	if meta["component"] != "workflow" {
		t.Errorf("component = %v, want workflow", meta["component"])
	}
}

func TestEventLogHandler_WithGroup(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db).WithGroup("request"))

	logger.Error("request error", "id", "abc123")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Message != "request error" {
		t.Errorf("Message = %q, want %q", events[0].Message, "request error")
	}
}

func TestEventLevel(t *testing.T) {
	testCases := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}

	for _, tc := range testCases {
		if got := eventLevel(tc.level); got != tc.expected {
			t.Errorf("eventLevel(%v) = %q, want %q", tc.level, got, tc.expected)
		}
	}
}
