// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"reflect"
	"testing"
)

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "draft", "REVIEW"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "lowercases and trims", input: []string{" Politics ", "SPORTS"}, want: []string{"politics", "sports"}},
		{name: "drops duplicates case-insensitively", input: []string{"Sports", "sports", "SPORTS"}, want: []string{"sports"}},
		{name: "drops empty", input: []string{"", "  ", "tech"}, want: []string{"tech"}},
		{name: "keeps non-latin", input: []string{"राजनीति"}, want: []string{"राजनीति"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestArticleStatusHelpers(t *testing.T) {
	a := &Article{Status: StatusPublished}
	if !a.IsPublished() || a.IsDraft() {
		t.Errorf("published article helpers wrong")
	}
	a.Status = StatusDraft
	if a.IsPublished() || !a.IsDraft() {
		t.Errorf("draft article helpers wrong")
	}
}
