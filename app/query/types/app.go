package types

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	dbreducer "github.com/canopy-network/liquidityx/pkg/db/reducer"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type App struct {
	Redis *redis.Client
	Store *crdt.RedisStore
	// History is nil when the pipeline does not write to ClickHouse.
	History dbreducer.Store
	Cache   *PairCache
	// Consumer follows the command stream and invalidates Cache.
	Consumer *redis.StreamConsumer
	// Registry backs /metrics. The controller creates one when nil.
	Registry *prometheus.Registry
	Logger   *zap.Logger
	Server   *http.Server
}

// Members returns the members of set, served from the cache when possible.
func (a *App) Members(ctx context.Context, set string) ([]string, error) {
	return a.Cache.Members(ctx, set, a.Store.Members)
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Query server stopped", zap.Error(err))
		}
	}()
	if a.Consumer != nil {
		go func() {
			if err := a.Consumer.Run(ctx, a.Cache.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("Command stream consumer stopped", zap.Error(err))
			}
		}()
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("Failed to close Redis connection", zap.Error(err))
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
