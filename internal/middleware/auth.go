// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the authenticated model.User.
const ContextKeyUser ContextKey = "user"

// Authenticator validates bearer access tokens. The user row is reloaded on
// every request so role changes and deactivation apply immediately.
type Authenticator struct {
	tokens  *auth.TokenManager
	queries *store.Queries
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(db *sql.DB, tokens *auth.TokenManager) *Authenticator {
	return &Authenticator{tokens: tokens, queries: store.New(db)}
}

// authFailure describes why a request could not be authenticated.
type authFailure struct {
	status  int
	code    string
	message string
}

// resolve returns the user behind the request's bearer token. A nil user with
// a nil failure means no token was sent.
func (a *Authenticator) resolve(r *http.Request) (*model.User, *authFailure) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return nil, &authFailure{http.StatusUnauthorized, CodeUnauthorized, "Invalid Authorization header format. Use: Bearer <token>"}
	}

	claims, err := a.tokens.ValidateAccessToken(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, &authFailure{http.StatusUnauthorized, CodeTokenExpired, "Token has expired"}
		}
		return nil, &authFailure{http.StatusUnauthorized, CodeInvalidToken, "Invalid token"}
	}

	user, err := a.queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authFailure{http.StatusUnauthorized, CodeInvalidToken, "User not found"}
		}
		slog.Error("failed to load user for token", "error", err, "user_id", claims.UserID)
		return nil, &authFailure{http.StatusInternalServerError, CodeInternalError, "Authentication failed"}
	}
	if !user.IsActive {
		return nil, &authFailure{http.StatusForbidden, CodeAccountInactive, "Account is deactivated"}
	}
	return &user, nil
}

// Authenticate requires a valid access token and stores the user in the
// request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, fail := a.resolve(r)
		if fail != nil {
			WriteAPIError(w, fail.status, fail.code, fail.message, nil)
			return
		}
		if user == nil {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Access token is required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *user)))
	})
}

// OptionalAuth stores the user in the request context when a valid token is
// sent. Requests with a missing or bad token continue anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, fail := a.resolve(r)
		if fail != nil || user == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *user)))
	})
}

// RequireRole creates middleware that admits only the given roles.
// It must run after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteAPIError(w, http.StatusForbidden, CodeForbidden, "Insufficient permissions", nil)
		})
	}
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, u)
}

// GetUser retrieves the authenticated user from the request context.
// Returns nil if the request is anonymous.
func GetUser(r *http.Request) *model.User {
	u, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &u
}

// GetActor returns the authenticated user as an Actor, or nil.
func GetActor(r *http.Request) *model.Actor {
	u := GetUser(r)
	if u == nil {
		return nil
	}
	a := u.Actor()
	return &a
}
