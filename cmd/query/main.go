package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/liquidityx/app/query"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := query.Initialize(ctx)
	if err := query.NewServer(app); err != nil {
		app.Logger.Fatal("Unable to initialize server", zap.Error(err))
	}
	app.Start(ctx)
}
