package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"ltask/internal/config"
	"ltask/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command: removes the stored credential.
// The local task database is untouched.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "ltask logout [common flags]" }
func (c *LogoutCmd) NeedsStore() bool  { return false }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	if err := cfg.RemoveToken(); err != nil {
		if os.IsNotExist(err) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "not logged in")
			}
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
