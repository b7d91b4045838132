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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command: toggles completion, so running it
// twice puts the task back the way it was.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"d"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle task completion" }
func (c *DoneCmd) Usage() string     { return "ltask done <num>" }
func (c *DoneCmd) NeedsStore() bool  { return true }
func (c *DoneCmd) NeedsAuth() bool   { return false }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
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

	if err := deps.Store.ToggleCompleted(ctx, t.ID); err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
