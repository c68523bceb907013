package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lokswami/newsroom/internal/model"
)

// CreateEventParams holds the columns of a new event log row.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullString
	Metadata  string
	IPAddress string
	CreatedAt time.Time
}

const createEvent = `INSERT INTO events (level, category, message, user_id, metadata, ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, ip_address, created_at`

func scanEvent(s scanner) (model.Event, error) {
	var (
		e      model.Event
		userID sql.NullString
	)
	err := s.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &userID, &e.Metadata, &e.IPAddress, &e.CreatedAt)
	e.UserID = userID.String
	return e, err
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.IPAddress, arg.CreatedAt)
	return scanEvent(row)
}

// ListEventsParams filters ListEvents. Empty Level and Category match everything.
type ListEventsParams struct {
	Level    string
	Category string
	Limit    int64
	Offset   int64
}

const listEvents = `SELECT id, level, category, message, user_id, metadata, ip_address, created_at
FROM events
WHERE (? = '' OR level = ?) AND (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents,
		arg.Level, arg.Level, arg.Category, arg.Category, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const deleteEventsBefore = `DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore purges events older than cutoff and returns how many went.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
