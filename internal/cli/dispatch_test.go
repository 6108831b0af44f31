package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tasksync/internal/api"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc service.Service) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
}

// run dispatches args with --config pointing at dir.
func run(t *testing.T, d *cli.Dispatcher, dir string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	if len(args) > 0 {
		args = append([]string{args[0], "--config", dir}, args[1:]...)
	}
	var out, errOut bytes.Buffer
	code = d.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr.String() != "" {
		t.Errorf("expected no stderr, got %q", stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("Usage:")) {
		t.Error("expected help output to contain 'Usage:'")
	}
	if svc.TotalCalls() != 0 {
		t.Error("help must not contact the server")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"version"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr.String() != "" {
		t.Errorf("expected no stderr, got %q", stderr.String())
	}
	if stdout.String() != "tasksync 0.1.0\n" {
		t.Errorf("expected 'tasksync 0.1.0\\n', got %q", stdout.String())
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help", "--unknown"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, dispatcher, t.TempDir(), "list", "--status")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -status\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(t, dispatcher, t.TempDir(), "list")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: not logged in (run: tasksync login)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
	if svc.TotalCalls() != 0 {
		t.Errorf("expected no server calls without a token, got %d", svc.TotalCalls())
	}
}

func TestDispatcher_NoArgsRunsList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	// list needs a session, so the auth gate answers
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, errors.New("no route to host")
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, stderr, code := run(t, dispatcher, t.TempDir(), "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: no route to host\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_SessionPersistsAcrossRuns(t *testing.T) {
	for _, backend := range []string{config.StoreFileBackend, config.StoreSQLiteBackend} {
		t.Run(backend, func(t *testing.T) {
			t.Setenv(config.EnvStore, backend)
			svc := testutil.NewFakeService()
			svc.AddUser("Ada", "ada@example.com", "secret")
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
			dir := t.TempDir()

			if _, stderr, code := run(t, dispatcher, dir, "login", "--email", "ada@example.com", "--password", "secret"); code != exitcode.Success {
				t.Fatalf("login: code %d, stderr %q", code, stderr)
			}
			if _, stderr, code := run(t, dispatcher, dir, "add", "--quiet", "--priority", "high", "Draft", "memo"); code != exitcode.Success {
				t.Fatalf("add: code %d, stderr %q", code, stderr)
			}

			stdout, _, code := run(t, dispatcher, dir, "list")
			if code != exitcode.Success {
				t.Fatalf("list: code %d", code)
			}
			if stdout != "   1  [ ] Draft memo  high\n" {
				t.Errorf("unexpected list output %q", stdout)
			}

			if _, _, code := run(t, dispatcher, dir, "logout"); code != exitcode.Success {
				t.Fatalf("logout: code %d", code)
			}
			if _, _, code := run(t, dispatcher, dir, "list"); code != exitcode.AuthError {
				t.Errorf("list after logout: expected exit code %d, got %d", exitcode.AuthError, code)
			}
		})
	}
}

func TestDispatcher_LoginOverCorruptStore(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.StoreFile), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := run(t, dispatcher, dir, "login", "--email", "ada@example.com", "--password", "secret")
	if code != exitcode.Success {
		t.Fatalf("login: code %d, stderr %q", code, stderr)
	}
	if stdout != "logged in as Ada <ada@example.com>\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if _, _, code := run(t, dispatcher, dir, "whoami"); code != exitcode.Success {
		t.Errorf("whoami: expected exit code %d, got %d", exitcode.Success, code)
	}
}

func TestDispatcher_RevokedTokenIsPurged(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dir := t.TempDir()

	if _, _, code := run(t, dispatcher, dir, "login", "--email", "ada@example.com", "--password", "secret"); code != exitcode.Success {
		t.Fatalf("login failed: %d", code)
	}
	svc.RevokeTokens()

	if _, _, code := run(t, dispatcher, dir, "whoami"); code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	me := svc.Calls(testutil.OpMe)
	if _, _, code := run(t, dispatcher, dir, "whoami"); code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if svc.Calls(testutil.OpMe) != me {
		t.Error("a purged token must not be validated again")
	}
}

func TestDispatcher_EndToEndHTTP(t *testing.T) {
	srv := testutil.NewServer(t)
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return api.NewWithHTTPClient(srv.APIURL(), srv.Client()), nil
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	dir := t.TempDir()

	if _, stderr, code := run(t, dispatcher, dir, "register", "--name", "Ada", "--email", "ada@example.com", "--password", "pw"); code != exitcode.Success {
		t.Fatalf("register: code %d, stderr %q", code, stderr)
	}
	if _, stderr, code := run(t, dispatcher, dir, "add", "-c", "Work Projects", "Draft memo"); code != exitcode.Success {
		t.Fatalf("add: code %d, stderr %q", code, stderr)
	}
	if _, stderr, code := run(t, dispatcher, dir, "done", "1"); code != exitcode.Success {
		t.Fatalf("done: code %d, stderr %q", code, stderr)
	}

	tasks := srv.Tasks("ada@example.com")
	if len(tasks) != 1 || !tasks[0].Completed || tasks[0].Priority != service.PriorityMedium {
		t.Fatalf("unexpected server state: %+v", tasks)
	}

	_, stderr, code := run(t, dispatcher, dir, "add", "-c", "Work Projects", "draft MEMO")
	if code != exitcode.UserError {
		t.Errorf("duplicate: expected exit code %d, got %d (%q)", exitcode.UserError, code, stderr)
	}

	srv.FailOnce("DELETE /api/tasks/{taskID}", 500, "database down")
	_, stderr, code = run(t, dispatcher, dir, "rm", "1")
	if code != exitcode.BackendError {
		t.Errorf("rm: expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: delete task: database down\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := len(srv.Tasks("ada@example.com")); n != 1 {
		t.Errorf("expected the task to survive on the server, got %d tasks", n)
	}
}
