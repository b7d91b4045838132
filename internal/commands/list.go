package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/output"
	"ltask/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command, the default when no command is
// given. Shows every live task, completed ones included, matching the
// numbering used by done/rm/edit/move.
type ListCmd struct {
	by   string
	open bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "ltask list [--by pos|due] [--open]" }
func (c *ListCmd) NeedsStore() bool  { return true }
func (c *ListCmd) NeedsAuth() bool   { return false }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.by, "by", "pos", "")
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	var order store.Order
	switch c.by {
	case "pos", "":
		order = store.ByPos
	case "due", "date":
		order = store.ByDue
	default:
		fmt.Fprintf(errOut, "error: unknown order: %s\n", c.by)
		return exitcode.UserError
	}

	tasks, err := deps.Store.List(ctx, order, !c.open)
	if err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks")
		}
		return exitcode.Success
	}

	today := time.Now().UTC()
	for i, t := range tasks {
		output.FormatTask(out, i+1, t, today)
	}
	return exitcode.Success
}
