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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due   string
	notes string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"a"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "ltask add [--due <date>] [--notes <text>] <title...>" }
func (c *AddCmd) NeedsStore() bool  { return true }
func (c *AddCmd) NeedsAuth() bool   { return false }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.notes, "notes", "", "")
	fs.StringVar(&c.notes, "n", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	due, err := parseDue(c.due)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if _, err := deps.Store.Add(ctx, title, c.notes, due); err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
