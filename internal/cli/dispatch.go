// Package cli parses arguments and dispatches to commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"ltask/internal/commands"
	"ltask/internal/config"
	"ltask/internal/exitcode"
	"ltask/internal/service"
	"ltask/internal/store"
)

// RemoteFactory creates the remote service client from config.
// Used to inject the backend during dispatch.
type RemoteFactory func(ctx context.Context, cfg *config.Config) (service.Remote, error)

// StoreFactory opens the local task store. The default opens the SQLite
// database under the data directory; tests substitute their own.
type StoreFactory func(cfg *config.Config) (*store.Store, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	remotes  RemoteFactory
	stores   StoreFactory
}

// NewDispatcher creates a new dispatcher. A nil store factory opens the
// database at the configured path.
func NewDispatcher(registry *commands.Registry, remotes RemoteFactory, stores StoreFactory) *Dispatcher {
	if stores == nil {
		stores = func(cfg *config.Config) (*store.Store, error) {
			return store.Open(cfg.DBPath())
		}
	}
	return &Dispatcher{registry: registry, remotes: remotes, stores: stores}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> the list command.
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command in front of them.
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We report errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(err, errOut)
	}

	// A positional arg starting with - means a flag the command doesn't
	// define slipped past parsing.
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	// Commands that distinguish "flag given" from "flag empty" get told
	// which flags were present.
	if v, ok := cmd.(interface{ MarkSet(string) }); ok {
		fs.Visit(func(f *flag.Flag) { v.MarkSet(f.Name) })
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	var deps commands.Deps

	if cmd.NeedsStore() {
		st, err := d.stores(cfg)
		if err != nil {
			fmt.Fprintf(errOut, "error: storage error: %s\n", err)
			return exitcode.StorageError
		}
		defer st.Close()
		deps.Store = st
	}

	if cmd.NeedsAuth() {
		if d.remotes != nil {
			remote, err := d.remotes(ctx, cfg)
			if err != nil {
				if strings.Contains(err.Error(), "token") || strings.Contains(err.Error(), "auth") {
					fmt.Fprintf(errOut, "error: auth error: %s\n", err)
					return exitcode.AuthError
				}
				fmt.Fprintf(errOut, "error: backend error: %s\n", err)
				return exitcode.BackendError
			}
			deps.Remote = remote
		} else {
			// No factory: pre-flight file checks only.
			if !cfg.HasOAuthClient() {
				fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n", cfg.Dir)
				return exitcode.AuthError
			}
			if !cfg.HasToken() {
				fmt.Fprintf(errOut, "error: not logged in (run: ltask login)\n")
				return exitcode.AuthError
			}
		}
	}

	return cmd.Run(ctx, cfg, deps, positionalArgs, out, errOut)
}

// flagError turns flag package errors into consistent user messages.
func flagError(err error, errOut io.Writer) int {
	errStr := err.Error()

	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		if len(parts) > 0 {
			flagPart := strings.TrimSpace(parts[0])
			flagPart = strings.TrimPrefix(flagPart, "flag ")
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
			return exitcode.UserError
		}
	}

	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
