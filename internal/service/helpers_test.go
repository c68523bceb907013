package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/cache"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/workflow"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return db
}

type services struct {
	db         *sql.DB
	events     *EventService
	users      *UserService
	categories *CategoryService
	articles   *ArticleService
	engine     *workflow.Engine
	tokens     *auth.TokenManager
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testDB(t)
	c := cache.NewMemoryCache(cache.MemoryOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	s := &services{db: db, events: NewEventService(db)}
	s.tokens = auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	s.users = NewUserService(db, s.tokens, s.events)
	s.categories = NewCategoryService(db, c, time.Minute, s.events)

	var articles *ArticleService
	s.engine = workflow.NewEngine(db,
		workflow.WithAuditor(s.events),
		workflow.WithCountListener(func(ctx context.Context, ids []string) {
			s.categories.CountsChanged(ctx, ids)
			articles.CountsChanged(ctx, ids)
		}),
	)
	articles = NewArticleService(db, s.engine, s.categories, c, time.Minute)
	s.articles = articles
	return s
}

func (s *services) staff(t *testing.T, role model.Role) model.Actor {
	t.Helper()
	u, err := s.users.Create(context.Background(), model.Actor{}, NewUser{
		Name:     "Staff " + string(role),
		Email:    uuid.NewString() + "@example.com",
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return u.Actor()
}

func (s *services) category(t *testing.T, name string) model.Category {
	t.Helper()
	c, err := s.categories.Create(context.Background(), model.Actor{}, CategoryInput{Name: &name})
	require.NoError(t, err)
	return c
}

func (s *services) draft(t *testing.T, actor model.Actor, title string, cat model.Category, tags ...string) model.Article {
	t.Helper()
	a, err := s.engine.CreateArticle(context.Background(), actor, workflow.ArticleInput{
		Title:         title,
		Content:       "<p>" + title + "</p>",
		Tags:          tags,
		CategoryID:    cat.ID,
		FeaturedImage: "https://cdn.example.com/" + cat.Slug + ".jpg",
	})
	require.NoError(t, err)
	return a
}

// publish walks a new article through review with an editor.
func (s *services) publish(t *testing.T, editor model.Actor, title string, cat model.Category, tags ...string) model.Article {
	t.Helper()
	a := s.draft(t, editor, title, cat, tags...)
	for _, to := range []model.Status{model.StatusSubEditorReview, model.StatusEditorApproved, model.StatusPublished} {
		var err error
		a, err = s.engine.RequestTransition(context.Background(), editor, a.ID, to, "")
		require.NoError(t, err)
	}
	return a
}
