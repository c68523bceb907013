// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package workflow implements the editorial publication workflow: the fixed
// status graph, the role authority table, slug generation and the engine that
// applies transitions together with their side effects in one transaction.
package workflow

import "github.com/lokswami/newsroom/internal/model"

// transitions is the fixed status graph. It is never mutated after init.
var transitions = map[model.Status][]model.Status{
	model.StatusDraft:           {model.StatusSubEditorReview},
	model.StatusSubEditorReview: {model.StatusDraft, model.StatusEditorApproved},
	model.StatusEditorApproved:  {model.StatusDraft, model.StatusPublished},
	model.StatusPublished:       {model.StatusArchived, model.StatusDraft},
	model.StatusArchived:        {model.StatusDraft},
}

// NextStatuses returns the statuses reachable from s in one step.
// The returned slice is a copy.
func NextStatuses(s model.Status) []model.Status {
	next := transitions[s]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

// IsEdge reports whether the graph has an edge from -> to.
func IsEdge(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
