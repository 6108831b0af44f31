package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// credentials holds the flags shared by login and register.
type credentials struct {
	email    string
	password string
}

func (c *credentials) register(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

// validate trims the email and falls back to EnvPassword for the password.
func (c *credentials) validate() error {
	c.email = strings.TrimSpace(c.email)
	if c.email == "" {
		return fmt.Errorf("email required")
	}
	if c.password == "" {
		c.password = os.Getenv(config.EnvPassword)
	}
	if c.password == "" {
		return fmt.Errorf("password required (use --password or %s)", config.EnvPassword)
	}
	return nil
}

// LoginCmd implements the login command.
type LoginCmd struct {
	creds credentials
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in" }
func (c *LoginCmd) Usage() string     { return "tasksync login --email <email> [--password <pw>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	c.creds.register(fs)
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if err := c.creds.validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if u, ok := env.Session.User(); ok && strings.EqualFold(u.Email, c.creds.email) {
		info(cfg, out, "already logged in\n")
		return exitcode.Success
	}

	if err := env.Session.Login(ctx, c.creds.email, c.creds.password); err != nil {
		return reportError(errOut, err)
	}

	u, _ := env.Session.User()
	info(cfg, out, "logged in as %s <%s>\n", u.Name, u.Email)
	return exitcode.Success
}

// RegisterCmd implements the register command. The new account is signed
// in immediately.
type RegisterCmd struct {
	name  string
	creds credentials
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "tasksync register --name <name> --email <email> [--password <pw>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.name, "n", "", "")
	c.creds.register(fs)
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(c.name)
	if name == "" {
		fmt.Fprintln(errOut, "error: name required")
		return exitcode.UserError
	}
	if err := c.creds.validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := env.Session.Register(ctx, name, c.creds.email, c.creds.password); err != nil {
		return reportError(errOut, err)
	}

	info(cfg, out, "registered and logged in as %s <%s>\n", name, c.creds.email)
	return exitcode.Success
}
