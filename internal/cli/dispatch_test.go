package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ltask/internal/commands"
	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/service"
	"ltask/internal/store"
	"ltask/internal/testutil"
)

// testDispatcher wires the real registry to a temp database. The config
// directory is redirected too, so nothing touches the user's home.
func testDispatcher(t *testing.T, remotes RemoteFactory) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	stores := func(cfg *config.Config) (*store.Store, error) {
		return store.Open(filepath.Join(dir, "tasks.db"))
	}
	return NewDispatcher(commands.DefaultRegistry, remotes, stores), dir
}

func run(t *testing.T, d *Dispatcher, dir string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{}, args...)
	if len(full) > 0 {
		full = append(full[:1], append([]string{"--config", dir}, full[1:]...)...)
	}
	code := d.Run(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunUnknownCommand(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	code, _, errOut := run(t, d, dir, "bogus")
	if code != exitcode.UserError {
		t.Errorf("exit code %d, want %d", code, exitcode.UserError)
	}
	if !strings.Contains(errOut, "unknown command: bogus") {
		t.Errorf("errOut = %q", errOut)
	}
}

func TestRunFlagBeforeCommand(t *testing.T) {
	d, _ := testDispatcher(t, nil)
	var out, errOut bytes.Buffer
	code := d.Run(context.Background(), []string{"--quiet"}, &out, &errOut)
	if code != exitcode.UserError {
		t.Errorf("exit code %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Errorf("errOut = %q", errOut.String())
	}
}

func TestRunNoArgsListsTasks(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	if code, _, errOut := run(t, d, dir, "add", "hello world"); code != exitcode.Success {
		t.Fatalf("add failed: %s", errOut)
	}

	// Bare invocation, no command word at all.
	var out, errOut bytes.Buffer
	code := d.Run(context.Background(), nil, &out, &errOut)
	if code != exitcode.Success {
		t.Fatalf("exit code %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "hello world") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUnknownFlag(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	code, _, errOut := run(t, d, dir, "list", "--frobnicate")
	if code != exitcode.UserError {
		t.Errorf("exit code %d", code)
	}
	if !strings.Contains(errOut, "unknown flag") {
		t.Errorf("errOut = %q", errOut)
	}
}

func TestRunAliasDispatch(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	if code, _, _ := run(t, d, dir, "a", "via alias"); code != exitcode.Success {
		t.Fatal("alias add failed")
	}
	code, out, _ := run(t, d, dir, "ls")
	if code != exitcode.Success {
		t.Fatal(code)
	}
	if !strings.Contains(out, "via alias") {
		t.Errorf("output = %q", out)
	}
}

func TestRunEditFlagPresenceTracking(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	if code, _, _ := run(t, d, dir, "add", "--due", "2026-05-01", "dated task"); code != exitcode.Success {
		t.Fatal("add failed")
	}

	// --due none must clear the date; an absent --notes must not wipe
	// anything. Presence is tracked via the flag set, not zero values.
	if code, _, errOut := run(t, d, dir, "edit", "--due", "none", "1"); code != exitcode.Success {
		t.Fatalf("edit failed: %s", errOut)
	}
	code, out, _ := run(t, d, dir, "list")
	if code != exitcode.Success {
		t.Fatal(code)
	}
	if strings.Contains(out, "2026-05-01") {
		t.Errorf("due date survived clearing: %q", out)
	}
	if !strings.Contains(out, "dated task") {
		t.Errorf("title lost: %q", out)
	}
}

func TestRunSyncWithoutCredentials(t *testing.T) {
	d, dir := testDispatcher(t, nil)
	code, _, errOut := run(t, d, dir, "sync")
	if code != exitcode.AuthError {
		t.Errorf("exit code %d, want %d", code, exitcode.AuthError)
	}
	if !strings.Contains(errOut, "oauth_client.json") {
		t.Errorf("errOut = %q", errOut)
	}
}

func TestRunSyncEndToEnd(t *testing.T) {
	fake := testutil.NewFakeRemote()
	remotes := func(ctx context.Context, cfg *config.Config) (service.Remote, error) {
		return fake, nil
	}
	d, dir := testDispatcher(t, remotes)

	if code, _, _ := run(t, d, dir, "add", "push me"); code != exitcode.Success {
		t.Fatal("add failed")
	}
	code, out, errOut := run(t, d, dir, "sync")
	if code != exitcode.Success {
		t.Fatalf("sync failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "pushed 1 created") {
		t.Errorf("summary = %q", out)
	}
	if fake.Live() != 1 {
		t.Errorf("remote live = %d, want 1", fake.Live())
	}

	// The run shows up in the log afterwards.
	code, out, _ = run(t, d, dir, "log")
	if code != exitcode.Success {
		t.Fatal(code)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("log output = %q", out)
	}
}

func TestRunQuietSync(t *testing.T) {
	fake := testutil.NewFakeRemote()
	remotes := func(ctx context.Context, cfg *config.Config) (service.Remote, error) {
		return fake, nil
	}
	d, dir := testDispatcher(t, remotes)

	code, out, _ := run(t, d, dir, "sync", "--quiet")
	if code != exitcode.Success {
		t.Fatal(code)
	}
	if out != "" {
		t.Errorf("quiet sync wrote %q", out)
	}
}

func TestRegistryFindAlias(t *testing.T) {
	for _, name := range []string{"list", "ls", "add", "a", "rm", "remove", "sync", "s"} {
		if _, ok := commands.DefaultRegistry.Find(name); !ok {
			t.Errorf("command %q not registered", name)
		}
	}
	if _, ok := commands.DefaultRegistry.Find("nope"); ok {
		t.Error("registry resolved a nonexistent command")
	}
}
