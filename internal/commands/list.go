package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. It is also what `tasksync` with no
// arguments runs.
type ListCmd struct {
	status   string
	category string
	priority string
	format   string
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasksync list [--status pending|completed] [--category <name>] [--priority low|medium|high] [--format text|json|yaml]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.format, "format", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	filter, err := c.filter()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	format, err := output.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Cache.Fetch(ctx, false); err != nil {
		return reportError(errOut, err)
	}
	if err := env.Cache.Err(); err != nil {
		return reportError(errOut, err)
	}

	entries := selectEntries(env.Cache.Tasks(), filter)

	if format != output.FormatText {
		tasks := make([]service.Task, len(entries))
		for i, e := range entries {
			tasks[i] = e.Task
		}
		if err := output.Encode(out, format, tasks); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	if len(entries) == 0 {
		info(cfg, out, "no tasks found\n")
		return exitcode.Success
	}
	output.NewPrinter(out).Tasks(entries)
	return exitcode.Success
}

func (c *ListCmd) filter() (cache.Filter, error) {
	var f cache.Filter
	status, err := cache.ParseStatus(c.status)
	if err != nil {
		return f, err
	}
	f.Status = status
	f.Category = c.category
	if c.priority != "" {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			return f, err
		}
		f.Priority = p
	}
	return f, nil
}

// selectEntries applies f while keeping each task's position in the full
// collection, so printed numbers stay valid as refs.
func selectEntries(tasks []service.Task, f cache.Filter) []output.Entry {
	var entries []output.Entry
	for i, t := range tasks {
		if f.Match(t) {
			entries = append(entries, output.Entry{Pos: i + 1, Task: t})
		}
	}
	return entries
}
