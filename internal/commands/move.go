package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/store"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the move command: repositions a task within the
// local ordering. Ordering is local-only state and never syncs, so moving
// a task does not dirty it.
type MoveCmd struct{}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task to a new position" }
func (c *MoveCmd) Usage() string     { return "ltask move <num> <to>" }
func (c *MoveCmd) NeedsStore() bool  { return true }
func (c *MoveCmd) NeedsAuth() bool   { return false }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: expected <num> <to>")
		return exitcode.UserError
	}
	from, err1 := strconv.Atoi(args[0])
	to, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || from < 1 || to < 1 {
		fmt.Fprintln(errOut, "error: positions must be positive numbers")
		return exitcode.UserError
	}

	tasks, err := deps.Store.List(ctx, store.ByPos, true)
	if err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}
	if from > len(tasks) || to > len(tasks) {
		fmt.Fprintf(errOut, "error: task number out of range\n")
		return exitcode.UserError
	}

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	moved := ids[from-1]
	ids = append(ids[:from-1], ids[from:]...)
	rest := make([]int64, 0, len(tasks))
	rest = append(rest, ids[:to-1]...)
	rest = append(rest, moved)
	rest = append(rest, ids[to-1:]...)

	if err := deps.Store.Reorder(ctx, rest); err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
