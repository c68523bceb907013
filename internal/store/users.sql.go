package store

import (
	"context"
	"time"

	"github.com/lokswami/newsroom/internal/model"
)

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var u model.User
	var role string
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

// CreateUserParams holds the columns of a new user row.
type CreateUserParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         model.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const createUser = `INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID, arg.Name, arg.Email, arg.PasswordHash, string(arg.Role), arg.IsActive, arg.CreatedAt, arg.UpdatedAt)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`

func (q *Queries) ListUsers(ctx context.Context, limit, offset int64) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

// UpdateUserProfileParams holds the self-service editable columns.
type UpdateUserProfileParams struct {
	ID        string
	Name      string
	Email     string
	UpdatedAt time.Time
}

const updateUserProfile = `UPDATE users SET name = ?, email = ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfile, arg.Name, arg.Email, arg.UpdatedAt, arg.ID))
}

const setUserActive = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetUserActive(ctx context.Context, id string, active bool, updatedAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, setUserActive, active, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
