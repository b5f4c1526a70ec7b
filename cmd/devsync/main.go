// devsync keeps a local view of a shared device inventory in step with the
// backend and with every other client working on the same site.
//
// One-shot commands (list, add, update, delete) load the inventory, apply a
// single change and announce it to peers. The watch command stays running,
// applies peer changes as they arrive and serves the read-only feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/devsync.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns DEVSYNC_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("DEVSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
