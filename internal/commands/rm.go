package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"ltask/internal/config"
	"ltask/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. A task that has been synced before is
// tombstoned locally until the next sync confirms the remote deletion;
// a local-only task disappears immediately.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"remove", "delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "ltask rm <num>" }
func (c *RmCmd) NeedsStore() bool  { return true }
func (c *RmCmd) NeedsAuth() bool   { return false }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	num, err := parseRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	t, err := taskByNumber(ctx, deps.Store, num)
	if err != nil {
		if strings.Contains(err.Error(), "out of range") {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if err := deps.Store.Delete(ctx, t.ID); err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
