// File: cmd/domainlens/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"domainlens/cmd"
	"domainlens/internal/observability"
)

func main() {
	// Signal-aware root context: Ctrl-C cancels the pipeline at the next
	// effect boundary instead of killing it mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer observability.Sync()

	cmd.ExecuteContext(ctx)
}
