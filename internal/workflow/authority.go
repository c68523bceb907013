// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import "github.com/lokswami/newsroom/internal/model"

// authority maps a target status to the roles allowed to set it.
var authority = map[model.Status][]model.Role{
	model.StatusDraft:           {model.RoleReporter, model.RoleSubEditor, model.RoleEditor, model.RoleAdmin},
	model.StatusSubEditorReview: {model.RoleReporter, model.RoleSubEditor, model.RoleEditor, model.RoleAdmin},
	model.StatusEditorApproved:  {model.RoleSubEditor, model.RoleEditor, model.RoleAdmin},
	model.StatusPublished:       {model.RoleEditor, model.RoleAdmin},
	model.StatusArchived:        {model.RoleEditor, model.RoleAdmin},
}

// MayTarget reports whether role is allowed to set an article to status,
// regardless of where the article currently is.
func MayTarget(role model.Role, status model.Status) bool {
	for _, r := range authority[status] {
		if r == role {
			return true
		}
	}
	return false
}

// CanTransition reports whether role may move an article from -> to.
// Both the graph edge and the target's role set must allow it.
func CanTransition(from, to model.Status, role model.Role) bool {
	return IsEdge(from, to) && MayTarget(role, to)
}

// CheckTransition is CanTransition with a typed error explaining the refusal.
// Graph reachability is checked before authority.
func CheckTransition(from, to model.Status, role model.Role) error {
	if !IsEdge(from, to) {
		return NewError(CodeInvalidTransition, "cannot move article from "+string(from)+" to "+string(to))
	}
	if !MayTarget(role, to) {
		return NewError(CodeForbidden, "role "+string(role)+" may not set status "+string(to))
	}
	return nil
}

// CanMutate reports whether actor may edit or delete an article by authorID.
// Authors may always edit their own articles; EDITOR and ADMIN may edit any.
func CanMutate(actor model.Actor, authorID string) bool {
	if actor.ID != "" && actor.ID == authorID {
		return true
	}
	return actor.Role == model.RoleEditor || actor.Role == model.RoleAdmin
}

// AllowedTargets returns the statuses role may move an article to from s.
func AllowedTargets(s model.Status, role model.Role) []model.Status {
	var out []model.Status
	for _, next := range transitions[s] {
		if MayTarget(role, next) {
			out = append(out, next)
		}
	}
	return out
}
