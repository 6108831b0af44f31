// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"

	"golang.org/x/oauth2"
)

// Service defines the interface to the remote authority.
// Every call that needs authentication takes the credential explicitly;
// a nil credential sends the request without one.
type Service interface {
	// Register creates an account and returns a usable token.
	Register(ctx context.Context, name, email, password string) (string, error)

	// Login exchanges credentials for a token.
	Login(ctx context.Context, email, password string) (string, error)

	// Me returns the profile of the account owning cred.
	Me(ctx context.Context, cred oauth2.TokenSource) (User, error)

	// ListTasks returns the full task collection in server order.
	ListTasks(ctx context.Context, cred oauth2.TokenSource) ([]Task, error)

	// CreateTask creates a task and returns it with its server-assigned ID.
	CreateTask(ctx context.Context, cred oauth2.TokenSource, in TaskInput) (Task, error)

	// UpdateTask applies a partial update and returns the full updated task.
	UpdateTask(ctx context.Context, cred oauth2.TokenSource, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, cred oauth2.TokenSource, id string) error

	// ListCategories returns the server's category vocabulary.
	ListCategories(ctx context.Context, cred oauth2.TokenSource) ([]string, error)
}
