// Package main is the entry point for the ltask CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ltask/internal/backend/googletasks"
	"ltask/internal/cli"
	"ltask/internal/commands"
	"ltask/internal/config"
	"ltask/internal/service"
)

func main() {
	// Cancel on interrupt so a sync run fails cleanly instead of dying
	// mid-write.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	remotes := func(ctx context.Context, cfg *config.Config) (service.Remote, error) {
		return googletasks.New(ctx, cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, remotes, nil)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
