package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme123"
	DefaultAdminName     = "Administrator"
)

// defaultCategories are created on first start so reporters have somewhere to file.
var defaultCategories = []CreateCategoryParams{
	{Name: "News", Slug: "news", Description: "General news", Color: "#3B82F6"},
	{Name: "Politics", Slug: "politics", Description: "Politics and government", Color: "#EF4444"},
	{Name: "Sports", Slug: "sports", Description: "Sports coverage", Color: "#10B981"},
}

// Seed creates initial data in the database.
// It is safe to call on every start.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	if err := seedAdmin(ctx, queries); err != nil {
		return err
	}
	return seedCategories(ctx, queries)
}

func seedAdmin(ctx context.Context, queries *Queries) error {
	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Name:         DefaultAdminName,
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Warn("created default admin user, change its password",
		"category", model.EventCategorySystem,
		"id", user.ID,
		"email", user.Email,
	)
	return nil
}

func seedCategories(ctx context.Context, queries *Queries) error {
	existing, err := queries.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, c := range defaultCategories {
		c.ID = uuid.NewString()
		c.CreatedAt = now
		c.UpdatedAt = now
		if _, err := queries.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("creating category %s: %w", c.Slug, err)
		}
	}
	slog.Info("seeded default categories", "count", len(defaultCategories))
	return nil
}
