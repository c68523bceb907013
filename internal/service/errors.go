package service

import "github.com/lokswami/newsroom/internal/workflow"

// Codes for account and category failures. Article workflow codes live in the
// workflow package.
const (
	CodeUserExists         = "USER_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeCategoryExists     = "CATEGORY_EXISTS"
)

var (
	ErrUserExists         = workflow.NewError(CodeUserExists, "user with this email already exists")
	ErrUserNotFound       = workflow.NewError(CodeUserNotFound, "user not found")
	ErrInvalidCredentials = workflow.NewError(CodeInvalidCredentials, "invalid email or password")
	ErrAccountInactive    = workflow.NewError(CodeAccountInactive, "account is deactivated")
	ErrCategoryExists     = workflow.NewError(CodeCategoryExists, "category with this slug already exists")
)
