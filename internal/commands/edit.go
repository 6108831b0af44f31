package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the flags given are changed;
// --category replaces the whole category set.
type EditCmd struct {
	title       optString
	description optString
	priority    optString
	due         optString
	categories  stringList
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "tasksync edit [--title <t>] [--description <d>] [--priority <p>] [--due YYYY-MM-DD] [--category <name>]... <ref>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.priority, "p", "")
	fs.Var(&c.due, "due", "")
	fs.Var(&c.categories, "category", "")
	fs.Var(&c.categories, "c", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	patch, err := c.patch()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if patch.Empty() {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	task, code := resolveRef(ctx, env, args, errOut)
	if code != exitcode.Success {
		return code
	}

	updated, err := env.Cache.Update(ctx, task.ID, patch)
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		output.NewPrinter(out).Task(updated)
	}
	return exitcode.Success
}

func (c *EditCmd) patch() (service.TaskPatch, error) {
	var p service.TaskPatch
	if c.title.set {
		p.Title = &c.title.val
	}
	if c.description.set {
		p.Description = &c.description.val
	}
	if c.priority.set {
		pr, err := service.ParsePriority(c.priority.val)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if c.due.set {
		due, err := parseDue(c.due.val)
		if err != nil {
			return p, err
		}
		p.DueDate = due
	}
	if len(c.categories) > 0 {
		cats := []string(c.categories)
		p.Categories = &cats
	}
	return p, nil
}
