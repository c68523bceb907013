// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/workflow"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NewUser holds the fields of an account being created. Role is ignored on
// self-registration.
type NewUser struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// ProfilePatch holds the self-service editable fields.
type ProfilePatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Session is what login and refresh hand back to the client.
type Session struct {
	User   model.User     `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// UserService manages staff accounts and sessions.
type UserService struct {
	queries *store.Queries
	tokens  *auth.TokenManager
	events  *EventService
}

// NewUserService creates a UserService.
func NewUserService(db *sql.DB, tokens *auth.TokenManager, events *EventService) *UserService {
	return &UserService{queries: store.New(db), tokens: tokens, events: events}
}

// Register creates a REPORTER account and signs it in.
func (s *UserService) Register(ctx context.Context, in NewUser, ip string) (Session, error) {
	in.Role = model.RoleReporter
	u, err := s.create(ctx, in)
	if err != nil {
		return Session{}, err
	}
	s.logAuth(ctx, model.EventLevelInfo, "User registered", u.ID, ip, nil)
	return s.session(u)
}

// Create adds an account with any role. Callers must restrict it to ADMIN.
func (s *UserService) Create(ctx context.Context, actor model.Actor, in NewUser) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleReporter
	}
	u, err := s.create(ctx, in)
	if err != nil {
		return model.User{}, err
	}
	if s.events != nil {
		_ = s.events.LogUserEvent(ctx, model.EventLevelInfo, "User created", actor.ID, "",
			map[string]any{"user_id": u.ID, "role": u.Role})
	}
	return u, nil
}

func (s *UserService) create(ctx context.Context, in NewUser) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(2, 100)),
		validation.Field(&in.Email, validation.Required, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&in.Password, validation.Required, validation.RuneLength(auth.MinPasswordLength, 128)),
		validation.Field(&in.Role, validation.By(func(v interface{}) error {
			if r, _ := v.(model.Role); !r.Valid() {
				return errors.New("must be one of REPORTER, SUB_EDITOR, EDITOR, ADMIN")
			}
			return nil
		})),
	)
	if err := validationError(err); err != nil {
		return model.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues a token pair.
func (s *UserService) Login(ctx context.Context, email, password, ip string) (Session, error) {
	u, err := s.queries.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			auth.BurnCheck(password)
			s.logAuth(ctx, model.EventLevelWarning, "Failed login attempt", "", ip, map[string]any{"email": email})
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("loading user: %w", err)
	}
	if !u.IsActive {
		s.logAuth(ctx, model.EventLevelWarning, "Login to inactive account", u.ID, ip, nil)
		return Session{}, ErrAccountInactive
	}

	ok, err := auth.CheckPassword(password, u.PasswordHash)
	if err != nil || !ok {
		s.logAuth(ctx, model.EventLevelWarning, "Failed login attempt", u.ID, ip, nil)
		return Session{}, ErrInvalidCredentials
	}

	s.logAuth(ctx, model.EventLevelInfo, "User logged in", u.ID, ip, nil)
	return s.session(u)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return Session{}, err
	}
	u, err := s.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrAccountInactive
	}
	return s.session(u)
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.queries.GetUserByID(ctx, id)
	return u, notFound(err, ErrUserNotFound)
}

// List returns one page of users, newest first, and the total count.
func (s *UserService) List(ctx context.Context, limit, offset int64) ([]model.User, int64, error) {
	items, err := s.queries.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	total, err := s.queries.CountUsers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}
	if items == nil {
		items = []model.User{}
	}
	return items, total, nil
}

// UpdateProfile changes the caller's own name or email. Role is not editable here.
func (s *UserService) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = normalizeEmail(*p.Email)
	}
	err = validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required, validation.RuneLength(2, 100)),
		validation.Field(&u.Email, validation.Required, validation.Match(emailPattern).Error("must be a valid email address")),
	)
	if err := validationError(err); err != nil {
		return model.User{}, err
	}

	updated, err := s.queries.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
		ID: u.ID, Name: u.Name, Email: u.Email, UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("updating profile: %w", err)
	}
	return updated, nil
}

// SetActive enables or disables an account. Disabled accounts cannot log in
// and their tokens stop working on the next request.
func (s *UserService) SetActive(ctx context.Context, actor model.Actor, id string, active bool) (model.User, error) {
	if actor.ID == id && !active {
		return model.User{}, workflow.NewError(workflow.CodeForbidden, "cannot deactivate your own account")
	}
	n, err := s.queries.SetUserActive(ctx, id, active, time.Now().UTC())
	if err != nil {
		return model.User{}, fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return model.User{}, ErrUserNotFound
	}
	if s.events != nil {
		_ = s.events.LogUserEvent(ctx, model.EventLevelWarning, "User activation changed", actor.ID, "",
			map[string]any{"user_id": id, "active": active})
	}
	return s.Get(ctx, id)
}

func (s *UserService) session(u model.User) (Session, error) {
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return Session{}, fmt.Errorf("issuing tokens: %w", err)
	}
	return Session{User: u, Tokens: pair}, nil
}

func (s *UserService) logAuth(ctx context.Context, level, message, userID, ip string, meta map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogAuthEvent(ctx, level, message, userID, ip, meta)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
