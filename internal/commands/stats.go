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
	Register(&StatsCmd{})
	Register(&CategoriesCmd{})
	Register(&WhoamiCmd{})
}

// StatsCmd prints counts by status and priority, plus the newest tasks.
type StatsCmd struct {
	recent int
	format string
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Summarize tasks" }
func (c *StatsCmd) Usage() string     { return "tasksync stats [--recent <n>] [--format text|json|yaml]" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.recent, "recent", 5, "")
	fs.StringVar(&c.format, "format", "", "")
}

type statsReport struct {
	cache.Stats `yaml:",inline"`
	Recent      []service.Task `json:"recent" yaml:"recent"`
}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if c.recent < 0 {
		fmt.Fprintf(errOut, "error: invalid recent count: %d\n", c.recent)
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

	stats := env.Cache.Stats()
	recent := env.Cache.Recent(c.recent)

	if format != output.FormatText {
		if err := output.Encode(out, format, statsReport{Stats: stats, Recent: recent}); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	p := output.NewPrinter(out)
	p.Stats(stats)
	if len(recent) > 0 {
		fmt.Fprintln(out, output.ListSeparator)
		entries := make([]output.Entry, len(recent))
		for i, t := range recent {
			entries[i] = output.Entry{Pos: i + 1, Task: t}
		}
		p.Tasks(entries)
	}
	return exitcode.Success
}

// CategoriesCmd prints the category vocabulary.
type CategoriesCmd struct{}

func (c *CategoriesCmd) Name() string      { return "categories" }
func (c *CategoriesCmd) Aliases() []string { return nil }
func (c *CategoriesCmd) Synopsis() string  { return "Print the category vocabulary" }
func (c *CategoriesCmd) Usage() string     { return "tasksync categories" }
func (c *CategoriesCmd) NeedsAuth() bool   { return true }

func (c *CategoriesCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CategoriesCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if err := env.Cache.FetchCategories(ctx); err != nil {
		env.logger().Warn("using default categories", "error", err)
	}
	for _, name := range env.Cache.Categories() {
		fmt.Fprintln(out, name)
	}
	return exitcode.Success
}

// WhoamiCmd prints the signed-in account.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Print the signed-in account" }
func (c *WhoamiCmd) Usage() string     { return "tasksync whoami" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	u, ok := env.Session.User()
	if !ok {
		return reportError(errOut, service.ErrNotAuthenticated)
	}
	fmt.Fprintf(out, "%s <%s>\n", u.Name, u.Email)
	return exitcode.Success
}
