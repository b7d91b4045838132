package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"ltask/internal/config"
	"ltask/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "ltask help" }
func (c *HelpCmd) NeedsStore() bool  { return false }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  ltask                                    List tasks (same as ltask list)
  ltask list [--by pos|due] [--open]
  ltask add [--due <date>] [--notes <text>] <title...>
  ltask edit [--title <text>] [--notes <text>] [--due <date>] <num>
  ltask done <num>                         Toggle completion
  ltask rm <num>
  ltask move <num> <to>
  ltask sync [common flags]                Sync with Google Tasks
  ltask log [-n <count>]                   Show recent sync runs
  ltask login [common flags]
  ltask logout [common flags]
  ltask help
  ltask version

Common flags:
  --config <dir>   Override config/data directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
