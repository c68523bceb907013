package workflow

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"punctuation", "Hello, World!", "hello-world"},
		{"numbers", "Budget 2026 explained", "budget-2026-explained"},
		{"accents", "Café résumé", "cafe-resume"},
		{"multiple spaces", "Hello   World", "hello-world"},
		{"spaced hyphen", "Hello - World", "hello-world"},
		{"hyphen runs", "--Breaking--News--", "breaking-news"},
		{"hyphen and spaces", "Live -  Updates", "live-updates"},
		{"surrounding spaces", "  Hello World  ", "hello-world"},
		{"only symbols", "!@#$%^&*()", "article"},
		{"empty", "", "article"},
		{"mixed case", "HeLLo WoRLd", "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugify_Transliterates(t *testing.T) {
	got := Slugify("भारत की जीत")
	if got == fallbackSlug || !IsValidSlug(got) {
		t.Errorf("Slugify(devanagari) = %q, want a transliterated slug", got)
	}
	if !strings.Contains(got, "-") {
		t.Errorf("Slugify(devanagari) = %q, want words joined by hyphens", got)
	}
}

func TestSlugify_Truncates(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	if len(got) > MaxSlugLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxSlugLength)
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("slug %q has surrounding hyphen", got)
	}
}

func TestSlugify_AlwaysValid(t *testing.T) {
	inputs := []string{"Hello World", "भारत की जीत", "--a--b--", "Ünïcödé   ", "x"}
	for _, in := range inputs {
		if got := Slugify(in); !IsValidSlug(got) {
			t.Errorf("Slugify(%q) = %q is not a valid slug", in, got)
		}
	}
}

func TestSlugCandidate(t *testing.T) {
	if got := SlugCandidate("news", 0); got != "news" {
		t.Errorf("candidate 0 = %q", got)
	}
	if got := SlugCandidate("news", 3); got != "news-3" {
		t.Errorf("candidate 3 = %q", got)
	}
}
