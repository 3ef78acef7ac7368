package app

import "errors"

var (
	// ErrUnauthorized indicates a request with no caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates the caller has no user row yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrProfileUpdateFailed indicates the profile-update transaction
	// failed or timed out; nothing was persisted.
	ErrProfileUpdateFailed = errors.New("failed to update profile")
	// ErrQuizGenerationFailed wraps generator/parser failures while
	// building quiz questions.
	ErrQuizGenerationFailed = errors.New("failed to generate quiz questions")
	// ErrSaveFailed indicates the assessment write itself failed.
	ErrSaveFailed = errors.New("failed to save quiz result")
)
