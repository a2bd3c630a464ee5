package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/core"
	"github.com/crmarques/hypersync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, newDependencies())
	stop()
	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}

func newDependencies() cli.Dependencies {
	return cli.Dependencies{
		NewSession: core.NewSession,
		LoadConfig: config.LoadWithEnv,
	}
}
