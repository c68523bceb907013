package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "middleware.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	return db
}

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
}

func createUser(t *testing.T, db *sql.DB, role model.Role, active bool) model.User {
	t.Helper()
	now := time.Now().UTC()
	u, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         "Test " + string(role),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return u
}

func bearer(t *testing.T, tm *auth.TokenManager, u model.User) string {
	t.Helper()
	pair, err := tm.IssuePair(u)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

// echoUser writes the authenticated user's ID, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u := GetUser(r); u != nil {
		_, _ = w.Write([]byte(u.ID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func TestAuthenticate(t *testing.T) {
	db := testDB(t)
	tm := testTokens()
	a := NewAuthenticator(db, tm)
	active := createUser(t, db, model.RoleEditor, true)
	inactive := createUser(t, db, model.RoleReporter, false)

	pair, err := tm.IssuePair(active)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", bearer(t, tm, active), http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, CodeUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, CodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, CodeInvalidToken},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, CodeInvalidToken},
		{"inactive account", bearer(t, tm, inactive), http.StatusForbidden, CodeAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			a.Authenticate(echoUser).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode == "" {
				assert.Equal(t, active.ID, rr.Body.String())
				return
			}
			env := decodeEnvelope(t, rr)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.False(t, env.Timestamp.IsZero())
		})
	}
}

func TestAuthenticateDeletedUser(t *testing.T) {
	db := testDB(t)
	tm := testTokens()
	ghost := model.User{ID: uuid.NewString(), Role: model.RoleAdmin}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tm, ghost))
	rr := httptest.NewRecorder()
	NewAuthenticator(db, tm).Authenticate(echoUser).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOptionalAuth(t *testing.T) {
	db := testDB(t)
	tm := testTokens()
	a := NewAuthenticator(db, tm)
	u := createUser(t, db, model.RoleReporter, true)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no token", "", "anonymous"},
		{"bad token", "Bearer nope", "anonymous"},
		{"valid token", bearer(t, tm, u), u.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			a.OptionalAuth(echoUser).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, rr.Body.String())
		})
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(model.RoleEditor, model.RoleAdmin)(echoUser)

	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"reporter", &model.User{ID: "r", Role: model.RoleReporter}, http.StatusForbidden},
		{"editor", &model.User{ID: "e", Role: model.RoleEditor}, http.StatusOK},
		{"admin", &model.User{ID: "a", Role: model.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/categories", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tt.user))
			}
			rr := httptest.NewRecorder()
			guard.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestGetActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetActor(req))

	req = req.WithContext(WithUser(req.Context(), model.User{ID: "u1", Role: model.RoleSubEditor}))
	actor := GetActor(req)
	require.NotNil(t, actor)
	assert.Equal(t, model.Actor{ID: "u1", Role: model.RoleSubEditor}, *actor)
}
