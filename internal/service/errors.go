package service

import "errors"

// Authentication failures.
var (
	// ErrUnauthorized is returned when the remote rejects the credential
	// or the submitted account details.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAuthenticated is returned when an operation needs a session
	// and there is none.
	ErrNotAuthenticated = errors.New("not logged in")
)

// Transport failures.
var (
	ErrTimeout = errors.New("request timed out")

	// ErrBadResponse is returned when a 2xx reply does not carry the
	// expected resource.
	ErrBadResponse = errors.New("malformed server response")
)

// Resource failures.
var (
	ErrNotFound = errors.New("not found")
)

// Validation failures. These are detected before any network call.
var (
	ErrEmptyTitle      = errors.New("title required")
	ErrDuplicate       = errors.New("a task with the same title and categories already exists")
	ErrInvalidPriority = errors.New("invalid priority (want low, medium or high)")
)
