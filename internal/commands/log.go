package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/output"
)

func init() {
	Register(&LogCmd{})
}

// LogCmd implements the log command: recent sync runs, newest first.
type LogCmd struct {
	limit int
}

func (c *LogCmd) Name() string      { return "log" }
func (c *LogCmd) Aliases() []string { return nil }
func (c *LogCmd) Synopsis() string  { return "Show recent sync runs" }
func (c *LogCmd) Usage() string     { return "ltask log [-n <count>]" }
func (c *LogCmd) NeedsStore() bool  { return true }
func (c *LogCmd) NeedsAuth() bool   { return false }

func (c *LogCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.limit, "n", 10, "")
}

func (c *LogCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	if c.limit < 1 {
		fmt.Fprintln(errOut, "error: count must be positive")
		return exitcode.UserError
	}

	runs, err := deps.Store.RecentRuns(ctx, c.limit)
	if err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if len(runs) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no sync runs yet")
		}
		return exitcode.Success
	}

	for _, r := range runs {
		output.FormatRun(out, r)
	}
	return exitcode.Success
}
