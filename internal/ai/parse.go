// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/lokswami/newsroom/internal/model"
)

// Output limits for suggestions.
const (
	SummaryPoints = 3
	MaxTags       = 7
)

var errMalformed = errors.New("no JSON object in model reply")

// extractJSON returns the JSON object in a model reply, tolerating markdown
// code fences and surrounding prose.
func extractJSON(reply string) (string, error) {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if strings.HasPrefix(cleaned, "{") && gjson.Valid(cleaned) {
		return cleaned, nil
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start && gjson.Valid(reply[start:end+1]) {
		return reply[start : end+1], nil
	}
	return "", errMalformed
}

// stringList reads r as a list of strings. Models sometimes answer with a
// comma separated string instead of an array; both forms are accepted.
// Items are trimmed, stripped of bullet markers and deduplicated.
func stringList(r gjson.Result, limit int) []string {
	var raw []string
	switch {
	case r.IsArray():
		for _, item := range r.Array() {
			raw = append(raw, item.String())
		}
	case r.Type == gjson.String:
		raw = splitList(r.String())
	}
	return cleanList(raw, limit)
}

// splitList splits on ASCII, full-width and ideographic commas.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
}

func cleanList(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "•-*"))
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

// bulletLines returns the bulleted lines of a plain text reply.
func bulletLines(reply string) []string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseSummary(reply string) ([]string, error) {
	doc, err := extractJSON(reply)
	if err != nil {
		if points := cleanList(bulletLines(reply), SummaryPoints); len(points) > 0 {
			return points, nil
		}
		return nil, err
	}
	return stringList(gjson.Get(doc, "summary"), SummaryPoints), nil
}

func parseTags(reply string) ([]string, error) {
	doc, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	return normalizeTags(stringList(gjson.Get(doc, "tags"), MaxTags)), nil
}

// normalizeTags lowercases tags the way article tags are stored.
func normalizeTags(tags []string) []string {
	for i, t := range tags {
		tags[i] = strings.ToLower(t)
	}
	return tags
}

func parseSEO(reply string) (model.SEO, error) {
	doc, err := extractJSON(reply)
	if err != nil {
		return model.SEO{}, err
	}
	return seoFrom(gjson.Parse(doc)), nil
}

// seoFrom reads SEO fields from r and enforces the article SEO limits.
func seoFrom(r gjson.Result) model.SEO {
	description := r.Get("metaDescription")
	if !description.Exists() {
		description = r.Get("meta_description")
	}
	return model.SEO{
		Title:           truncate(strings.TrimSpace(r.Get("title").String()), model.SEOTitleMaxLen),
		MetaDescription: truncate(strings.TrimSpace(description.String()), model.SEODescriptionMaxLen),
		Keywords:        stringList(r.Get("keywords"), model.SEOKeywordsMax),
	}
}

func parseCompletion(reply string) (Completion, error) {
	doc, err := extractJSON(reply)
	if err != nil {
		return Completion{}, err
	}
	return Completion{
		Summary: stringList(gjson.Get(doc, "summary"), SummaryPoints),
		Tags:    normalizeTags(stringList(gjson.Get(doc, "tags"), MaxTags)),
		SEO:     seoFrom(gjson.Get(doc, "seo")),
	}, nil
}

// parseTranslation strips the code fence some models wrap text in.
func parseTranslation(reply string) string {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// parsed applies parse to a model reply. A reply that cannot be parsed is
// reported as ErrUnavailable.
func parsed[T any](operation, reply string, parse func(string) (T, error)) (T, error) {
	v, err := parse(reply)
	if err != nil {
		slog.Warn("unparseable ai reply", "operation", operation, "error", err, "reply_len", len(reply))
		var zero T
		return zero, ErrUnavailable
	}
	return v, nil
}
