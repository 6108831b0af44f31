package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
	"tasksync/internal/watch"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd prints the collection, then reprints it whenever a periodic
// refresh finds it changed. It runs until interrupted.
type WatchCmd struct {
	interval time.Duration
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Print tasks and follow changes" }
func (c *WatchCmd) Usage() string     { return "tasksync watch [--interval <duration>]" }
func (c *WatchCmd) NeedsAuth() bool   { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.interval, "interval", 30*time.Second, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if c.interval < time.Second {
		fmt.Fprintf(errOut, "error: interval must be at least 1s: %s\n", c.interval)
		return exitcode.UserError
	}

	p := output.NewPrinter(out)
	show := func(tasks []service.Task) {
		entries := make([]output.Entry, len(tasks))
		for i, t := range tasks {
			entries[i] = output.Entry{Pos: i + 1, Task: t}
		}
		fmt.Fprintln(out, output.ListSeparator)
		p.Tasks(entries)
	}

	w, err := watch.New(env.Cache, c.interval, show, env.logger())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Cache.Fetch(ctx, false); err != nil {
		return reportError(errOut, err)
	}
	show(env.Cache.Tasks())
	w.Prime()

	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
