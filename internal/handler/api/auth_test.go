package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/service"
)

func TestRegisterLoginRefresh(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Asha Verma",
		"email":    "Asha@Example.com",
		"password": "password123",
		"role":     "ADMIN",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var registered service.Session
	env := decode(t, rr, &registered)
	assert.True(t, env.Success)
	assert.Equal(t, model.RoleReporter, registered.User.Role, "self-registration never grants a role")
	assert.Equal(t, "asha@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Tokens.AccessToken)

	rr = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "asha@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var session service.Session
	decode(t, rr, &session)

	rr = s.do(t, http.MethodGet, "/api/auth/me", nil, session.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var me model.User
	decode(t, rr, &me)
	assert.Equal(t, registered.User.ID, me.ID)

	rr = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": session.Tokens.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// An access token is not a refresh token.
	rr = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": session.Tokens.AccessToken,
	}, "")
	expectError(t, rr, http.StatusUnauthorized, middleware.CodeInvalidToken)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	u, _ := s.staff(t, model.RoleReporter)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"wrong password", map[string]any{"email": u.Email, "password": "nope-nope"}, http.StatusUnauthorized, service.CodeInvalidCredentials},
		{"unknown email", map[string]any{"email": "ghost@example.com", "password": "password123"}, http.StatusUnauthorized, service.CodeInvalidCredentials},
		{"missing password", map[string]any{"email": u.Email}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/auth/login", tt.body, "")
			expectError(t, rr, tt.status, tt.code)
		})
	}
}

func TestLoginValidationDetails(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "a@example.com"}, "")
	env := expectError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.Contains(t, env.Details, "password")
}

func TestLoginLockout(t *testing.T) {
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 2,
		LockoutDuration:   time.Minute,
	})
	t.Cleanup(lp.Close)
	s := newTestServer(t, withLoginProtection(lp))
	u, _ := s.staff(t, model.RoleReporter)

	bad := map[string]any{"email": u.Email, "password": "wrong-password"}
	expectError(t, s.do(t, http.MethodPost, "/api/auth/login", bad, ""), http.StatusUnauthorized, service.CodeInvalidCredentials)

	rr := s.do(t, http.MethodPost, "/api/auth/login", bad, "")
	expectError(t, rr, http.StatusTooManyRequests, middleware.CodeAccountLocked)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Even the right password is refused while locked.
	good := map[string]any{"email": u.Email, "password": "password123"}
	expectError(t, s.do(t, http.MethodPost, "/api/auth/login", good, ""), http.StatusTooManyRequests, middleware.CodeAccountLocked)
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(t, model.RoleReporter)

	rr := s.do(t, http.MethodPatch, "/api/auth/me", map[string]any{"name": "Renamed Reporter", "role": "ADMIN"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var u model.User
	decode(t, rr, &u)
	assert.Equal(t, "Renamed Reporter", u.Name)
	assert.Equal(t, model.RoleReporter, u.Role)

	expectError(t, s.do(t, http.MethodPatch, "/api/auth/me", map[string]any{"name": "x"}, ""), http.StatusUnauthorized, middleware.CodeUnauthorized)
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.staff(t, model.RoleAdmin)
	reporter, reporterToken := s.staff(t, model.RoleReporter)

	expectError(t, s.do(t, http.MethodGet, "/api/users", nil, reporterToken), http.StatusForbidden, middleware.CodeForbidden)

	rr := s.do(t, http.MethodPost, "/api/users", map[string]any{
		"name": "Sub Editor", "email": "sub@example.com", "password": "password123", "role": "SUB_EDITOR",
	}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created model.User
	decode(t, rr, &created)
	assert.Equal(t, model.RoleSubEditor, created.Role)

	rr = s.do(t, http.MethodGet, "/api/users?limit=2", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var page service.Page[model.User]
	decode(t, rr, &page)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore)

	expectError(t, s.do(t, http.MethodPatch, "/api/users/"+reporter.ID+"/active", map[string]any{}, adminToken),
		http.StatusBadRequest, "VALIDATION_ERROR")

	rr = s.do(t, http.MethodPatch, "/api/users/"+reporter.ID+"/active", map[string]any{"isActive": false}, adminToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The deactivated reporter's still-valid token stops working at once.
	expectError(t, s.do(t, http.MethodGet, "/api/auth/me", nil, reporterToken), http.StatusForbidden, middleware.CodeAccountInactive)

	expectError(t, s.do(t, http.MethodPatch, "/api/users/missing/active", map[string]any{"isActive": true}, adminToken),
		http.StatusNotFound, service.CodeUserNotFound)
}
