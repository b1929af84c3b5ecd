package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/verity-cli/cmd"
)

func main() {
	// Interrupts cancel the command context so browsers and reports shut
	// down cleanly instead of leaving orphaned processes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(cmd.Execute(ctx))
}
