package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/cache"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/logging"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/store"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list
	if len(args) == 0 {
		args = []string{"list"}
	}

	name := args[0]
	// Flags require a command
	if strings.HasPrefix(name, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(name)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet, debug bool
	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A leftover "-x" means a flag after a positional argument
	positional := fs.Args()
	if len(positional) > 0 && strings.HasPrefix(positional[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positional[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	if _, offline := cmd.(commands.Offline); offline {
		return cmd.Run(ctx, cfg, nil, positional, out, errOut)
	}

	env, cleanup, code := d.buildEnv(ctx, cfg, errOut)
	if code != exitcode.Success {
		return code
	}
	defer cleanup()

	if cmd.NeedsAuth() && !env.Session.Authenticated() {
		fmt.Fprintf(errOut, "error: not logged in (run: %s login)\n", config.AppName)
		return exitcode.AuthError
	}

	return cmd.Run(ctx, cfg, env, positional, out, errOut)
}

// buildEnv wires logger, token store, session and cache, then restores
// any persisted session.
func (d *Dispatcher) buildEnv(ctx context.Context, cfg *config.Config, errOut io.Writer) (*commands.Env, func(), int) {
	if d.factory == nil {
		fmt.Fprintln(errOut, "error: backend error: no backend configured")
		return nil, nil, exitcode.BackendError
	}

	logger, closeLog, err := logging.New(logging.Options{
		Debug:  cfg.Debug,
		Level:  cfg.LogLevel,
		Path:   cfg.LogPath(),
		Stderr: errOut,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, nil, exitcode.UserError
	}

	svc, err := d.factory(ctx, cfg)
	if err != nil {
		_ = closeLog()
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return nil, nil, exitcode.BackendError
	}

	st, err := store.Open(cfg)
	if err != nil {
		_ = closeLog()
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, nil, exitcode.AuthError
	}

	sess := session.New(svc, st, logger)
	c := cache.New(svc, sess, logger)
	sess.Bootstrap(ctx)

	cleanup := func() {
		c.Close()
		if err := st.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
		_ = closeLog()
	}
	return &commands.Env{Session: sess, Cache: c, Log: logger}, cleanup, exitcode.Success
}

// flagError rewrites a flag package error into the CLI's wording.
func flagError(err error) string {
	msg := err.Error()
	if name, ok := strings.CutPrefix(msg, "flag provided but not defined: "); ok {
		return "unknown flag: " + name
	}
	return msg
}
