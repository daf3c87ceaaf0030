// Command reviewcrawler acquires Google Play reviews through the channel
// cascade, one app at a time, in batches, or behind an HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reviewcrawler: %v\n", err)
		stop()
		os.Exit(1)
	}
}
