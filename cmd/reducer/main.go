package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/liquidityx/app/reducer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize exits on any wiring failure.
	reducer.Initialize(ctx).Start(ctx)
}
