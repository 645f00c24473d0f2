package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joescharf/cr/cmd"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx, version, commit, date)
}
