package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/ui"
)

func main() {
	// Set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.NewPrinter().Error("%v", err)
		cancel()
		os.Exit(pipeline.ExitCode(err))
	}
}
