package commands_test

import (
	"testing"

	"google.golang.org/api/googleapi"

	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/testutil"
)

func TestLoginCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser(testName, testEmail, testPassword)
	env := newEnv(t, svc, false)

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, env,
		[]string{"--email", testEmail, "--password", testPassword}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "logged in as Ada <ada@example.com>\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if !env.Session.Authenticated() {
		t.Error("expected authenticated session")
	}
}

func TestLoginCommand_PasswordFromEnv(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser(testName, testEmail, testPassword)
	env := newEnv(t, svc, false)
	t.Setenv(config.EnvPassword, testPassword)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, env, []string{"-e", testEmail}, true)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
}

func TestLoginCommand_MissingInput(t *testing.T) {
	t.Setenv(config.EnvPassword, "")
	env := newEnv(t, testutil.NewFakeService(), false)

	tests := []struct {
		argv    []string
		wantErr string
	}{
		{nil, "error: email required\n"},
		{[]string{"--email", testEmail}, "error: password required (use --password or TASKSYNC_PASSWORD)\n"},
	}
	for _, tt := range tests {
		_, stderr, code := runCommand(t, &commands.LoginCmd{}, env, tt.argv, false)
		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", tt.argv, exitcode.UserError, code)
		}
		if stderr != tt.wantErr {
			t.Errorf("%v: expected %q, got %q", tt.argv, tt.wantErr, stderr)
		}
	}
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser(testName, testEmail, testPassword)
	env := newEnv(t, svc, false)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, env,
		[]string{"--email", testEmail, "--password", "wrong"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Login failed\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_ServerMessage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Fail(testutil.OpLogin, &googleapi.Error{Code: 400, Message: "Invalid credentials"})
	env := newEnv(t, svc, false)

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, env,
		[]string{"--email", testEmail, "--password", "x"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Invalid credentials\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	env := newEnv(t, svc, true)
	logins := svc.Calls(testutil.OpLogin)

	stdout, _, code := runCommand(t, &commands.LoginCmd{}, env,
		[]string{"--email", testEmail, "--password", testPassword}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "already logged in\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if svc.Calls(testutil.OpLogin) != logins {
		t.Error("expected no new login call")
	}
}

func TestRegisterCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	env := newEnv(t, svc, false)

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, env,
		[]string{"--name", "Bob", "--email", "bob@example.com", "--password", "pw"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "registered and logged in as Bob <bob@example.com>\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	if u, ok := env.Session.User(); !ok || u.Email != "bob@example.com" {
		t.Errorf("unexpected session user %+v", u)
	}
}

func TestRegisterCommand_Failure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser(testName, testEmail, testPassword)
	env := newEnv(t, svc, false)

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, env,
		[]string{"--name", "Ada", "--email", testEmail, "--password", "pw"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Registration failed\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}

	_, stderr, code = runCommand(t, &commands.RegisterCmd{}, env,
		[]string{"--email", testEmail, "--password", "pw"}, false)
	if code != exitcode.UserError || stderr != "error: name required\n" {
		t.Errorf("missing name: code %d, stderr %q", code, stderr)
	}
}

func TestLogoutCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	env := newEnv(t, svc, true)

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, env, nil, false)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("first logout: code %d, output %q", code, stdout)
	}
	if env.Session.Authenticated() {
		t.Error("expected unauthenticated session")
	}
	if n := len(env.Cache.Tasks()); n != 0 {
		t.Errorf("expected cleared cache, have %d tasks", n)
	}

	stdout, _, code = runCommand(t, &commands.LogoutCmd{}, env, nil, false)
	if code != exitcode.Success || stdout != "not logged in\n" {
		t.Errorf("second logout: code %d, output %q", code, stdout)
	}
}
