// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/session"
)

// Env carries the session and cache shared by all commands of one run.
type Env struct {
	Session *session.Manager
	Cache   *cache.Cache
	Log     *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires an authenticated
	// session. The dispatcher refuses to run it otherwise.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command and returns the exit code.
	// env is nil for commands that never touch the server (help, version).
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}

// Offline is implemented by commands that never use the session or the
// server. The dispatcher runs them without building an Env.
type Offline interface {
	Offline()
}

// reportError prints err in the CLI's format and maps it to an exit code.
func reportError(errOut io.Writer, err error) int {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		fmt.Fprintf(errOut, "error: %s\n", authErr.Message)
		return exitcode.AuthError
	}

	code := exitcode.For(err)
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		fmt.Fprintln(errOut, "error: not logged in (run: tasksync login)")
	case code == exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found")
	case code == exitcode.UserError:
		fmt.Fprintf(errOut, "error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return code
}

func info(cfg *config.Config, out io.Writer, format string, a ...any) {
	if !cfg.Quiet {
		fmt.Fprintf(out, format, a...)
	}
}
