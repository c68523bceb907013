package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/ai"
	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/cache"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/workflow"
)

// stubProvider answers every chat completion with reply, or fails with err.
type stubProvider struct {
	reply string
	err   error
}

func (p *stubProvider) ChatCompletion(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &ai.ChatResponse{Content: p.reply}, nil
}

type testServer struct {
	router     http.Handler
	db         *sql.DB
	users      *service.UserService
	categories *service.CategoryService
	tokens     *auth.TokenManager
	provider   *stubProvider
}

type serverOption func(*Deps)

func withoutAI() serverOption {
	return func(d *Deps) { d.Assistant = ai.NewAssistant(nil, ai.Options{}) }
}

func withLoginProtection(lp *middleware.LoginProtection) serverOption {
	return func(d *Deps) { d.LoginProtection = lp }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	c := cache.NewMemoryCache(cache.MemoryOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	events := service.NewEventService(db)
	users := service.NewUserService(db, tokens, events)
	categories := service.NewCategoryService(db, c, time.Minute, events)

	var articles *service.ArticleService
	engine := workflow.NewEngine(db,
		workflow.WithAuditor(events),
		workflow.WithCountListener(func(ctx context.Context, ids []string) {
			categories.CountsChanged(ctx, ids)
			articles.CountsChanged(ctx, ids)
		}),
	)
	articles = service.NewArticleService(db, engine, categories, c, time.Minute)

	provider := &stubProvider{}
	deps := Deps{
		DB:         db,
		Users:      users,
		Articles:   articles,
		Categories: categories,
		Engine:     engine,
		Assistant:  ai.NewAssistant(provider, ai.Options{Timeout: time.Second, RetryBase: time.Millisecond}),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	r := chi.NewRouter()
	NewHandler(deps).Routes(r, RouterConfig{
		Authenticator: middleware.NewAuthenticator(db, tokens),
	})

	return &testServer{
		router:     r,
		db:         db,
		users:      users,
		categories: categories,
		tokens:     tokens,
		provider:   provider,
	}
}

// staff creates an account with role and returns it with an access token.
func (s *testServer) staff(t *testing.T, role model.Role) (model.User, string) {
	t.Helper()
	u, err := s.users.Create(context.Background(), model.Actor{}, service.NewUser{
		Name:     "Staff " + string(role),
		Email:    uuid.NewString() + "@example.com",
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	pair, err := s.tokens.IssuePair(u)
	require.NoError(t, err)
	return u, pair.AccessToken
}

func (s *testServer) category(t *testing.T, name string) model.Category {
	t.Helper()
	c, err := s.categories.Create(context.Background(), model.Actor{}, service.CategoryInput{Name: &name})
	require.NoError(t, err)
	return c
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// envelope mirrors middleware.Envelope with the payload left raw.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

// expectError asserts an error envelope with the given status and code.
func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	env := decode(t, rr, nil)
	require.False(t, env.Success)
	require.Equal(t, code, env.Code)
	return env
}

func articleBody(title string, cat model.Category) map[string]any {
	return map[string]any{
		"title":         title,
		"content":       "<p>" + title + "</p>",
		"categoryId":    cat.ID,
		"featuredImage": "https://cdn.example.com/" + cat.Slug + ".jpg",
		"tags":          []string{"Politics"},
	}
}
