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
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the flags actually given
// change the task; `--due none` clears the due date.
type EditCmd struct {
	title string
	notes string
	due   string

	set map[string]bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"e"} }
func (c *EditCmd) Synopsis() string  { return "Edit a task's fields" }
func (c *EditCmd) Usage() string {
	return "ltask edit [--title <text>] [--notes <text>] [--due <date>] <num>"
}
func (c *EditCmd) NeedsStore() bool { return true }
func (c *EditCmd) NeedsAuth() bool  { return false }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.notes, "notes", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
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

	title, notes, due := t.Title, t.Notes, t.Due
	changed := false
	if c.set["title"] {
		title = c.title
		changed = true
	}
	if c.set["notes"] {
		notes = c.notes
		changed = true
	}
	if c.set["due"] {
		due, err = parseDue(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		changed = true
	}
	if !changed {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title cannot be empty")
		return exitcode.UserError
	}

	if err := deps.Store.UpdateFields(ctx, t.ID, title, notes, due); err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// MarkSet records which flags were given; the dispatcher calls it for
// every flag present on the command line (flag.FlagSet.Visit).
func (c *EditCmd) MarkSet(name string) {
	if c.set == nil {
		c.set = make(map[string]bool)
	}
	c.set[name] = true
}
