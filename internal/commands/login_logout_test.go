package commands

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"ltask/internal/config"
	"ltask/internal/exitcode"
)

func TestLoginWithoutClientCredentials(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := (&LoginCmd{}).Run(context.Background(), cfg, Deps{}, nil, &out, &errOut)
	if code != exitcode.AuthError {
		t.Errorf("exit code %d, want %d", code, exitcode.AuthError)
	}
	// The error walks the user through credential setup.
	if !strings.Contains(errOut.String(), "oauth_client.json") {
		t.Errorf("errOut = %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "console.cloud.google.com") {
		t.Errorf("setup instructions missing: %q", errOut.String())
	}
}

func TestLogoutWithoutToken(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := (&LogoutCmd{}).Run(context.Background(), cfg, Deps{}, nil, &out, &errOut)
	if code != exitcode.Success {
		t.Errorf("exit code %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "not logged in") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLogoutRemovesToken(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.TokenPath(), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := (&LogoutCmd{}).Run(context.Background(), cfg, Deps{}, nil, &out, &errOut)
	if code != exitcode.Success {
		t.Fatalf("exit code %d: %s", code, errOut.String())
	}
	if cfg.HasToken() {
		t.Error("token file survived logout")
	}
}
