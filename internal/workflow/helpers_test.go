package workflow

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

type fixture struct {
	db       *sql.DB
	q        *store.Queries
	engine   *Engine
	reporter model.Actor
	sub      model.Actor
	editor   model.Actor
	admin    model.Actor
	news     model.Category
	sports   model.Category
}

func openTestDB(t *testing.T, cfg store.DBConfig) *sql.DB {
	t.Helper()
	db, err := store.NewDBWithConfig(filepath.Join(t.TempDir(), "workflow.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return db
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := openTestDB(t, store.DefaultDBConfig())
	f := &fixture{db: db, q: store.New(db)}
	f.engine = NewEngine(db, opts...)

	f.reporter = f.user(t, model.RoleReporter)
	f.sub = f.user(t, model.RoleSubEditor)
	f.editor = f.user(t, model.RoleEditor)
	f.admin = f.user(t, model.RoleAdmin)
	f.news = f.category(t, "news")
	f.sports = f.category(t, "sports")
	return f
}

func (f *fixture) user(t *testing.T, role model.Role) model.Actor {
	t.Helper()
	now := time.Now().UTC()
	u, err := f.q.CreateUser(context.Background(), store.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         string(role),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return u.Actor()
}

func (f *fixture) category(t *testing.T, slug string) model.Category {
	t.Helper()
	now := time.Now().UTC()
	c, err := f.q.CreateCategory(context.Background(), store.CreateCategoryParams{
		ID: uuid.NewString(), Name: slug, Slug: slug, Color: "#123456", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) input(title string, cat model.Category) ArticleInput {
	return ArticleInput{
		Title:         title,
		Content:       "<p>Story body</p>",
		Summary:       []string{"first point"},
		Tags:          []string{"Politics", " politics ", "Delhi"},
		CategoryID:    cat.ID,
		FeaturedImage: "https://img.example.com/cover.jpg",
	}
}

func (f *fixture) create(t *testing.T, actor model.Actor, title string, cat model.Category) model.Article {
	t.Helper()
	a, err := f.engine.CreateArticle(context.Background(), actor, f.input(title, cat))
	require.NoError(t, err)
	return a
}

// publish walks a fresh draft through review and approval to PUBLISHED.
func (f *fixture) publish(t *testing.T, a model.Article) model.Article {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		actor model.Actor
		to    model.Status
	}{
		{f.reporter, model.StatusSubEditorReview},
		{f.sub, model.StatusEditorApproved},
		{f.editor, model.StatusPublished},
	}
	var err error
	for _, s := range steps {
		a, err = f.engine.RequestTransition(ctx, s.actor, a.ID, s.to, "")
		require.NoError(t, err)
	}
	return a
}

func (f *fixture) count(t *testing.T, cat model.Category) int64 {
	t.Helper()
	c, err := f.q.GetCategoryByID(context.Background(), cat.ID)
	require.NoError(t, err)
	return c.ArticleCount
}

// requireCountsConsistent checks the stored counter of every category against
// the articles table.
func (f *fixture) requireCountsConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	cats, err := f.q.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		actual, err := f.q.CountPublishedInCategory(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, actual, c.ArticleCount, "category %s", c.Slug)
	}
}
