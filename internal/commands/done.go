package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task's completed flag" }
func (c *DoneCmd) Usage() string     { return "tasksync done <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	task, code := resolveRef(ctx, env, args, errOut)
	if code != exitcode.Success {
		return code
	}

	updated, err := env.Cache.Toggle(ctx, task.ID)
	if err != nil {
		return reportError(errOut, err)
	}

	if updated.Completed {
		info(cfg, out, "completed\n")
	} else {
		info(cfg, out, "reopened\n")
	}
	return exitcode.Success
}

// resolveRef parses args as a task ref and finds the task in the cache.
func resolveRef(ctx context.Context, env *Env, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	if err := env.Cache.Fetch(ctx, false); err != nil {
		return service.Task{}, reportError(errOut, err)
	}

	task, err := ref.Resolve(env.Cache.Tasks())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}
