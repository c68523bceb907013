// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/lokswami/newsroom/internal/ai"
)

// AIRequest is the body of every /ai endpoint. Each endpoint reads the
// fields it needs.
type AIRequest struct {
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Direction ai.Direction `json:"direction"`
}

// Summarize handles POST /api/ai/summarize.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	summary, err := h.assistant.Summarize(r.Context(), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"summary": summary}, "Article summarized successfully")
}

// SuggestTags handles POST /api/ai/tags.
func (h *Handler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tags, err := h.assistant.SuggestTags(r.Context(), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"tags": tags}, "Tags suggested successfully")
}

// GenerateSEO handles POST /api/ai/seo.
func (h *Handler) GenerateSEO(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	seo, err := h.assistant.GenerateSEO(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"seo": seo}, "SEO metadata generated successfully")
}

// Translate handles POST /api/ai/translate.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	translation, err := h.assistant.Translate(r.Context(), req.Content, req.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"translation": translation}, "Content translated successfully")
}

// CompleteAssist handles POST /api/ai/complete.
func (h *Handler) CompleteAssist(w http.ResponseWriter, r *http.Request) {
	var req AIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.assistant.Complete(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, result, "AI assistance completed successfully")
}
