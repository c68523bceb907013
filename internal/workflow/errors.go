// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package workflow

import "errors"

// Error codes surfaced to API clients.
const (
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeForbidden              = "FORBIDDEN"
	CodeArticleNotFound        = "ARTICLE_NOT_FOUND"
	CodeCategoryNotFound       = "CATEGORY_NOT_FOUND"
	CodeCategoryInUse          = "CATEGORY_HAS_ARTICLES"
	CodeSlugExhausted          = "SLUG_GENERATION_EXHAUSTED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeValidation             = "VALIDATION_ERROR"
)

// Error is a workflow failure with a stable machine-readable code.
// Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    string
	Message string
	// Fields carries per-field validation messages for CodeValidation.
	Fields map[string]string
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidTransition      = NewError(CodeInvalidTransition, "invalid status transition")
	ErrForbidden              = NewError(CodeForbidden, "not authorized")
	ErrArticleNotFound        = NewError(CodeArticleNotFound, "article not found")
	ErrCategoryNotFound       = NewError(CodeCategoryNotFound, "category not found")
	ErrCategoryInUse          = NewError(CodeCategoryInUse, "cannot delete category with articles; reassign or delete them first")
	ErrSlugExhausted          = NewError(CodeSlugExhausted, "could not generate a unique slug")
	ErrConcurrentModification = NewError(CodeConcurrentModification, "article was modified concurrently; reload and retry")
	ErrValidation             = NewError(CodeValidation, "validation failed")
)

// ValidationError wraps per-field messages into a CodeValidation error.
func ValidationError(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

// CodeOf returns the workflow code carried by err, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
