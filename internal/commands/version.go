package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
)

// Version is the release of tasksync; overridden with -ldflags at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

type versionInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
	API     string `json:"api_url" yaml:"api_url"`
}

// VersionCmd prints the client release and, in machine formats, the
// toolchain and configured server.
type VersionCmd struct {
	format string
}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print the tasksync release" }
func (c *VersionCmd) Usage() string     { return "tasksync version [--format text|json|yaml]" }
func (c *VersionCmd) NeedsAuth() bool   { return false }
func (c *VersionCmd) Offline()          {}

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	c.format = ""
	fs.StringVar(&c.format, "format", "", "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	format, err := output.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if format == output.FormatText {
		fmt.Fprintf(out, "%s %s\n", config.AppName, Version)
		return exitcode.Success
	}

	v := versionInfo{Name: config.AppName, Version: Version, Go: runtime.Version(), API: cfg.APIURL}
	if err := output.Encode(out, format, v); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
