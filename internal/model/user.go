// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including User, Article, Category, and the editorial status and role enums.
package model

import (
	"time"
)

// Role is a newsroom staff role. It is the authorization key for status transitions.
type Role string

// Newsroom roles, from least to most privileged.
const (
	RoleReporter  Role = "REPORTER"
	RoleSubEditor Role = "SUB_EDITOR"
	RoleEditor    Role = "EDITOR"
	RoleAdmin     Role = "ADMIN"
)

// AllRoles lists every role in privilege order.
var AllRoles = []Role{RoleReporter, RoleSubEditor, RoleEditor, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleSubEditor, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// User represents a newsroom staff member.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsEditorial returns true for EDITOR and ADMIN, the roles allowed to edit any article.
func (u *User) IsEditorial() bool {
	return u.Role == RoleEditor || u.Role == RoleAdmin
}

// Actor identifies who is performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// Actor returns the user as an Actor.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
