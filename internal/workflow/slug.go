// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxSlugLength is the maximum length of a base slug, before any suffix.
	MaxSlugLength = 100
	// MaxSlugAttempts caps the number of writes tried while resolving a slug collision.
	MaxSlugAttempts = 5
	// fallbackSlug is used when a title has no transliterable characters.
	fallbackSlug = "article"
)

var (
	slugStrip     = regexp.MustCompile(`[^a-z0-9\s-]+`)
	slugSeparator = regexp.MustCompile(`[\s-]+`)
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify converts a title into a URL slug candidate.
// Accents are removed first, then anything left outside ASCII is transliterated.
// Runs of whitespace and hyphens collapse into a single hyphen.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, title)
	if err != nil {
		s = title
	}
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparator.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxSlugLength {
		s = s[:MaxSlugLength]
	}
	s = strings.Trim(s, "-")

	if s == "" {
		return fallbackSlug
	}
	return s
}

// SlugCandidate returns the n-th candidate for base: base itself for n == 0,
// otherwise base-n.
func SlugCandidate(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// IsValidSlug reports whether s is a well-formed slug.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
