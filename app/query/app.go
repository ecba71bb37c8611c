package query

import (
	"context"
	"fmt"
	"os"

	"github.com/canopy-network/liquidityx/app/query/types"
	"github.com/canopy-network/liquidityx/pkg/config"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	dbreducer "github.com/canopy-network/liquidityx/pkg/db/reducer"
	"github.com/canopy-network/liquidityx/pkg/logging"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.NewService("query")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	pipeline := utils.Env("PIPELINE_ID", config.DefaultPipelineID)
	logger = logger.With(zap.String("pipeline", pipeline))

	rc, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(err))
	}

	var history dbreducer.Store
	if utils.EnvBool("CLICKHOUSE_ENABLED", false) {
		db, err := dbreducer.New(ctx, logger, pipeline, "query")
		if err != nil {
			logger.Fatal("Unable to initialize reducer database", zap.Error(err))
		}
		history = db
	} else {
		logger.Info("ClickHouse disabled - pair history and gap reports will not be available")
	}

	app, err := NewApp(rc, history, logger)
	if err != nil {
		logger.Fatal("Unable to set up command stream consumer", zap.Error(err))
	}
	return app
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// NewApp assembles the query app around an open Redis client. Each replica
// reads the command stream on its own, without a consumer group, since every
// replica holds its own cache.
func NewApp(rc *redis.Client, history dbreducer.Store, logger *zap.Logger) (*types.App, error) {
	store := crdt.NewRedisStore(rc, logger)
	cache := types.NewPairCache(logger)

	host, _ := os.Hostname()
	consumer, err := redis.NewStreamConsumer(rc, redis.StreamConsumerConfig{
		Stream: store.Stream(),
		LastID: "$",
		Logger: logger.With(zap.String("consumer", fmt.Sprintf("query@%s", host))),
	})
	if err != nil {
		return nil, err
	}

	return &types.App{
		Redis:    rc,
		Store:    store,
		History:  history,
		Cache:    cache,
		Consumer: consumer,
		Registry: newRegistry(),
		Logger:   logger,
	}, nil
}
