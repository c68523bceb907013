// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Status is the editorial workflow status of an article.
type Status string

// Article statuses.
const (
	StatusDraft           Status = "DRAFT"
	StatusSubEditorReview Status = "SUB_EDITOR_REVIEW"
	StatusEditorApproved  Status = "EDITOR_APPROVED"
	StatusPublished       Status = "PUBLISHED"
	StatusArchived        Status = "ARCHIVED"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusDraft,
	StatusSubEditorReview,
	StatusEditorApproved,
	StatusPublished,
	StatusArchived,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubEditorReview, StatusEditorApproved, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// SEO limits.
const (
	SEOTitleMaxLen       = 60
	SEODescriptionMaxLen = 160
	SEOKeywordsMax       = 7
)

// SEO holds search engine metadata for an article.
type SEO struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

// Article represents a news article.
type Article struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Summary       []string   `json:"summary"`
	Tags          []string   `json:"tags"`
	SEO           SEO        `json:"seo"`
	Status        Status     `json:"status"`
	AuthorID      string     `json:"authorId"`
	CategoryID    string     `json:"categoryId"`
	FeaturedImage string     `json:"featuredImage"`
	PDFURL        string     `json:"pdfUrl,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	ViewCount     int64      `json:"viewCount"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsPublished returns true if the article is published.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// IsDraft returns true if the article is a draft.
func (a *Article) IsDraft() bool {
	return a.Status == StatusDraft
}

// StatusChange is one applied workflow transition.
type StatusChange struct {
	ID        int64     `json:"id"`
	ArticleID string    `json:"articleId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedBy string    `json:"changedBy"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates.
// Order of first occurrence is kept.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CleanStrings trims each entry and drops empty ones.
func CleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
