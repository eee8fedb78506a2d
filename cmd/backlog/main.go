package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/backlog/internal/cmd"
	"github.com/felixgeelhaar/backlog/internal/exitcode"
	"github.com/felixgeelhaar/backlog/internal/orchestrator"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		var runErr *orchestrator.RunError
		if ctx.Err() == context.Canceled && !errors.As(err, &runErr) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		cmd.PrintError(os.Stderr, err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
