// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Category groups articles. ArticleCount is the number of PUBLISHED articles in it.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Color        string    `json:"color"`
	ArticleCount int64     `json:"articleCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasArticles returns true while published articles are counted against the category.
func (c *Category) HasArticles() bool {
	return c.ArticleCount > 0
}
