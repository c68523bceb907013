// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lokswami/newsroom/internal/model"
)

const (
	maxTitleLength = 200
	maxTagLength   = 50
	maxSummaryItem = 500
)

var urlish = regexp.MustCompile(`^(https?://|/)\S+$`)

// validateArticle checks the fields of an article about to be written.
func validateArticle(a model.Article) error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&a.Content, validation.Required),
		validation.Field(&a.CategoryID, validation.Required),
		validation.Field(&a.FeaturedImage, validation.Required, validation.Match(urlish).Error("must be a URL")),
		validation.Field(&a.PDFURL, validation.Match(urlish).Error("must be a URL")),
		validation.Field(&a.Tags, validation.Each(validation.RuneLength(1, maxTagLength))),
		validation.Field(&a.Summary, validation.Each(validation.RuneLength(1, maxSummaryItem))),
		validation.Field(&a.Status, validation.By(func(v interface{}) error {
			if s, _ := v.(model.Status); !s.Valid() {
				return errors.New("must be a valid status")
			}
			return nil
		})),
	)
	if err != nil {
		return fromValidation(err)
	}

	seo := a.SEO
	err = validation.ValidateStruct(&seo,
		validation.Field(&seo.Title, validation.RuneLength(0, model.SEOTitleMaxLen)),
		validation.Field(&seo.MetaDescription, validation.RuneLength(0, model.SEODescriptionMaxLen)),
		validation.Field(&seo.Keywords, validation.Length(0, model.SEOKeywordsMax)),
	)
	if err != nil {
		return prefixFields("seo.", fromValidation(err))
	}
	return nil
}

// fromValidation converts ozzo errors into a VALIDATION_ERROR with per-field
// messages keyed by the JSON field name.
func fromValidation(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for k, v := range errs {
		fields[k] = v.Error()
	}
	return ValidationError(fields)
}

func prefixFields(prefix string, err error) error {
	var we *Error
	if !errors.As(err, &we) || we.Fields == nil {
		return err
	}
	fields := make(map[string]string, len(we.Fields))
	for k, v := range we.Fields {
		fields[prefix+k] = v
	}
	return ValidationError(fields)
}
