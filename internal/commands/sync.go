package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"

	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/output"
	"ltask/internal/service"
	enginepkg "ltask/internal/sync"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd implements the sync command: one full run of the sync engine
// against the remote service. The interactive flow only ever sees the
// run summary; per-task details go to the rotating sync log.
type SyncCmd struct{}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return []string{"s"} }
func (c *SyncCmd) Synopsis() string  { return "Sync with Google Tasks" }
func (c *SyncCmd) Usage() string     { return "ltask sync [common flags]" }
func (c *SyncCmd) NeedsStore() bool  { return true }
func (c *SyncCmd) NeedsAuth() bool   { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	logger := syncLogger(cfg)
	engine := enginepkg.New(deps.Store, deps.Remote, policyFromSettings(cfg.Settings), logger)

	run, err := engine.Run(ctx)
	if err != nil {
		switch {
		case service.IsAuth(err):
			fmt.Fprintf(errOut, "error: auth error: %v (run: ltask login)\n", err)
			return exitcode.AuthError
		case service.IsTransient(err):
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		default:
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.StorageError
		}
	}

	if !cfg.Quiet {
		output.FormatSummary(out, run)
	}
	return exitcode.Success
}

// syncLogger builds the rotating diagnostics logger. Engine output never
// reaches the terminal; the log file is for after-the-fact diagnosis.
func syncLogger(cfg *config.Config) *log.Logger {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil
	}
	return log.New(&lumberjack.Logger{
		Filename:   cfg.SyncLogPath(),
		MaxSize:    5, // megabytes
		MaxBackups: 2,
	}, "[sync] ", log.LstdFlags)
}

// policyFromSettings maps config.toml onto the engine's conflict policy.
func policyFromSettings(s config.Settings) enginepkg.Policy {
	pol := enginepkg.DefaultPolicy()
	if s.TieBreak == "local" {
		pol.Tie = enginepkg.TieLocal
	}
	if s.DeleteWins != nil {
		pol.DeleteWins = *s.DeleteWins
	}
	return pol
}
