package store

import (
	"context"

	"github.com/lokswami/newsroom/internal/model"
)

const createStatusChange = `INSERT INTO article_status_changes (article_id, from_status, to_status, changed_by, note, changed_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateStatusChange(ctx context.Context, c model.StatusChange) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createStatusChange,
		c.ArticleID, string(c.From), string(c.To), c.ChangedBy, c.Note, c.ChangedAt).Scan(&id)
	return id, err
}

const listStatusChanges = `SELECT id, article_id, from_status, to_status, changed_by, note, changed_at
FROM article_status_changes
WHERE article_id = ?
ORDER BY id`

// ListStatusChanges returns the transition history of an article, oldest first.
func (q *Queries) ListStatusChanges(ctx context.Context, articleID string) ([]model.StatusChange, error) {
	rows, err := q.db.QueryContext(ctx, listStatusChanges, articleID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []model.StatusChange{}
	for rows.Next() {
		var (
			c        model.StatusChange
			from, to string
		)
		if err := rows.Scan(&c.ID, &c.ArticleID, &from, &to, &c.ChangedBy, &c.Note, &c.ChangedAt); err != nil {
			return nil, err
		}
		c.From = model.Status(from)
		c.To = model.Status(to)
		items = append(items, c)
	}
	return items, rows.Err()
}
