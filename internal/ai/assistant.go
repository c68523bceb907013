// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/workflow"
)

// MinSummarizeLength is the shortest content worth summarizing, in characters.
const MinSummarizeLength = 50

// Prompt input caps, in characters.
const (
	tagsInputLimit       = 2000
	seoInputLimit        = 3000
	completionInputLimit = 4000
)

// Direction is a translation direction.
type Direction string

// Supported translation directions.
const (
	HindiToEnglish Direction = "HI_TO_EN"
	EnglishToHindi Direction = "EN_TO_HI"
)

// Valid reports whether d is a supported direction.
func (d Direction) Valid() bool {
	return d == HindiToEnglish || d == EnglishToHindi
}

// Completion bundles every suggestion for one article.
type Completion struct {
	Summary []string  `json:"summary"`
	Tags    []string  `json:"tags"`
	SEO     model.SEO `json:"seo"`
}

// Options configures an Assistant.
type Options struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// RetryBase is the first backoff delay; later ones double.
	RetryBase time.Duration
}

// Assistant produces drafting suggestions for newsroom staff.
type Assistant struct {
	provider   Provider
	model      string
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

// NewAssistant creates an Assistant. A nil provider yields an assistant whose
// every call fails with ErrDisabled.
func NewAssistant(p Provider, opts Options) *Assistant {
	a := &Assistant{
		provider:   p,
		model:      opts.Model,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryBase:  opts.RetryBase,
	}
	if a.model == "" {
		a.model = "gpt-4o-mini"
	}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}
	if a.maxRetries < 0 {
		a.maxRetries = 0
	}
	if a.retryBase <= 0 {
		a.retryBase = time.Second
	}
	return a
}

// Enabled reports whether a provider is configured.
func (a *Assistant) Enabled() bool {
	return a.provider != nil
}

const systemPrompt = `You are a professional assistant for a Hindi news desk.
Respond ONLY with a valid JSON object, no markdown code fences and no other text.`

// Summarize condenses content into three Hindi bullet points.
func (a *Assistant) Summarize(ctx context.Context, content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if err := requireText("content", content); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(content) < MinSummarizeLength {
		return nil, workflow.ValidationError(map[string]string{
			"content": fmt.Sprintf("must be at least %d characters long", MinSummarizeLength),
		})
	}

	prompt := fmt.Sprintf(`Summarize the news article below in exactly %d bullet points in Hindi.
Each point should be 15-20 words and focus on the key facts.

Respond with: {"summary": ["point 1", "point 2", "point 3"]}

Article:
%s`, SummaryPoints, content)

	reply, err := a.call(ctx, "summarize", a.request(prompt, 0.3))
	if err != nil {
		return nil, err
	}
	return parsed("summarize", reply, parseSummary)
}

// SuggestTags proposes five to seven Hindi tags for content.
func (a *Assistant) SuggestTags(ctx context.Context, content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if err := requireText("content", content); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Suggest 5-7 relevant Hindi tags for the news article below.
Each tag should be 1-3 words, for example a news category such as politics, crime,
sports, entertainment, business, technology, health or education, written in Hindi.

Respond with: {"tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]}

Article:
%s`, truncate(content, tagsInputLimit))

	reply, err := a.call(ctx, "tags", a.request(prompt, 0.3))
	if err != nil {
		return nil, err
	}
	return parsed("tags", reply, parseTags)
}

// GenerateSEO proposes SEO metadata for an article. Title and description
// are cut to the article SEO limits.
func (a *Assistant) GenerateSEO(ctx context.Context, title, content string) (model.SEO, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if err := requireText("title", title); err != nil {
		return model.SEO{}, err
	}
	if err := requireText("content", content); err != nil {
		return model.SEO{}, err
	}

	prompt := fmt.Sprintf(`Prepare SEO metadata in Hindi for the news article below.
- title: 50-%d characters, engaging
- metaDescription: 150-%d characters, summarizing the article
- keywords: 5-%d relevant Hindi keywords

Respond with: {"title": "...", "metaDescription": "...", "keywords": ["..."]}

Article title: %s

Article content:
%s`, model.SEOTitleMaxLen, model.SEODescriptionMaxLen, model.SEOKeywordsMax, title, truncate(content, seoInputLimit))

	reply, err := a.call(ctx, "seo", a.request(prompt, 0.4))
	if err != nil {
		return model.SEO{}, err
	}
	return parsed("seo", reply, parseSEO)
}

// Translate translates content between Hindi and English.
func (a *Assistant) Translate(ctx context.Context, content string, direction Direction) (string, error) {
	content = strings.TrimSpace(content)
	if err := requireText("content", content); err != nil {
		return "", err
	}
	if !direction.Valid() {
		return "", workflow.ValidationError(map[string]string{
			"direction": fmt.Sprintf("must be either %s or %s", HindiToEnglish, EnglishToHindi),
		})
	}

	from, to := "Hindi", "English"
	if direction == EnglishToHindi {
		from, to = to, from
	}
	req := ChatRequest{
		Model: a.model,
		Messages: []ChatMessage{
			{Role: "system", Content: "You are a professional news translator."},
			{Role: "user", Content: fmt.Sprintf(`Translate the text below from %s to %s.
Keep the original meaning and context, use natural news style, and reply with
the translated text only, without any commentary.

Text:
%s`, from, to, content)},
		},
		Temperature: 0.2,
	}

	reply, err := a.call(ctx, "translate", req)
	if err != nil {
		return "", err
	}
	return parseTranslation(reply), nil
}

// Complete runs summary, tag and SEO suggestion in a single model call.
func (a *Assistant) Complete(ctx context.Context, title, content string) (Completion, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if err := requireText("title", title); err != nil {
		return Completion{}, err
	}
	if err := requireText("content", content); err != nil {
		return Completion{}, err
	}

	prompt := fmt.Sprintf(`Prepare all metadata for the news article below, in Hindi:
- summary: exactly %d bullet points of 15-20 words
- tags: 5-7 tags of 1-3 words
- seo: title up to %d characters, metaDescription up to %d characters, 5-%d keywords

Respond with:
{"summary": ["..."], "tags": ["..."], "seo": {"title": "...", "metaDescription": "...", "keywords": ["..."]}}

Article title: %s

Article content:
%s`, SummaryPoints, model.SEOTitleMaxLen, model.SEODescriptionMaxLen, model.SEOKeywordsMax, title, truncate(content, completionInputLimit))

	reply, err := a.call(ctx, "complete", a.request(prompt, 0.4))
	if err != nil {
		return Completion{}, err
	}
	return parsed("complete", reply, parseCompletion)
}

func (a *Assistant) request(prompt string, temperature float64) ChatRequest {
	return ChatRequest{
		Model: a.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   1024,
		Temperature: temperature,
	}
}

func requireText(field, value string) error {
	if value == "" {
		return workflow.ValidationError(map[string]string{field: "is required"})
	}
	return nil
}
