package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }
func (c *HelpCmd) Offline()          {}

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                    List all tasks
  tasksync list [common flags] [--status pending|completed] [--category <name>]
                [--priority low|medium|high] [--format text|json|yaml]
  tasksync add [common flags] [--priority <p>] [--due YYYY-MM-DD]
               [--category <name>]... [--description <text>] <title...>
  tasksync edit [common flags] [--title <t>] [--description <d>] [--priority <p>]
                [--due YYYY-MM-DD] [--category <name>]... <ref>
  tasksync done [common flags] <ref>          Toggle completed
  tasksync rm [common flags] <ref>
  tasksync stats [common flags] [--recent <n>] [--format text|json|yaml]
  tasksync categories [common flags]
  tasksync whoami [common flags]
  tasksync watch [common flags] [--interval <duration>]
  tasksync login [common flags] --email <email> [--password <pw>]
  tasksync register [common flags] --name <name> --email <email> [--password <pw>]
  tasksync logout [common flags]
  tasksync help
  tasksync version [--format text|json|yaml]

A <ref> is the number shown by 'tasksync list' or a task id.
The password may also be given in TASKSYNC_PASSWORD.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
