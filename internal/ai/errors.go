// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import "github.com/lokswami/newsroom/internal/workflow"

// Error codes for assistant failures.
const (
	CodeDisabled    = "AI_DISABLED"
	CodeUnavailable = "AI_UNAVAILABLE"
	CodeRateLimited = "AI_RATE_LIMIT"
)

var (
	ErrDisabled    = workflow.NewError(CodeDisabled, "AI assistant is not configured")
	ErrUnavailable = workflow.NewError(CodeUnavailable, "AI service is temporarily unavailable")
	ErrRateLimited = workflow.NewError(CodeRateLimited, "AI service rate limit exceeded, try again later")
)
