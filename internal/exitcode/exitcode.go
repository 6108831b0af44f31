// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"tasksync/internal/service"
)

// Process exit codes.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad input: arguments, validation, unknown task.
	UserError = 1

	// AuthError indicates a missing, rejected or unreadable session.
	AuthError = 2

	// BackendError indicates a server, network or timeout failure.
	BackendError = 3
)

// For classifies err into an exit code. A nil error is Success.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrUnauthorized):
		return AuthError
	case errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrInvalidPriority),
		errors.Is(err, service.ErrNotFound):
		return UserError
	default:
		return BackendError
	}
}
