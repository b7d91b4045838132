// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"ltask/internal/config"
	"ltask/internal/service"
	"ltask/internal/store"
)

// Deps carries the collaborators a command may need. Store is nil unless
// NeedsStore() returns true; Remote is nil unless NeedsAuth() returns true.
type Deps struct {
	Store  *store.Store
	Remote service.Remote
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsStore returns true if the command works on the local task
	// database.
	NeedsStore() bool

	// NeedsAuth returns true if the command talks to the remote service
	// and therefore requires stored credentials.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command. args contains positional arguments
	// after flag parsing. Returns an exit code.
	Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int
}
