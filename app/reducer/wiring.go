package reducer

import (
	"errors"
	"fmt"

	"github.com/canopy-network/liquidityx/app/reducer/activity"
	"github.com/canopy-network/liquidityx/pkg/config"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	dbreducer "github.com/canopy-network/liquidityx/pkg/db/reducer"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"go.uber.org/zap"
)

// Sinks are the places a block's commands go, in application order.
type Sinks struct {
	Applier  crdt.MultiApplier
	Progress activity.ProgressStore
}

// NewSinks orders the configured appliers: the ClickHouse log first, so a
// command is durable before Redis publishes it, then Redis, then the log.
// Progress comes from ClickHouse when it is configured, otherwise from Redis.
func NewSinks(cfg config.Config, rc *redis.Client, db dbreducer.Store, logger *zap.Logger) (Sinks, error) {
	var s Sinks
	if cfg.HasSink(config.SinkClickHouse) {
		if db == nil {
			return Sinks{}, errors.New("clickhouse sink configured without a database")
		}
		s.Applier = append(s.Applier, db)
		s.Progress = db
	}
	if cfg.HasSink(config.SinkRedis) {
		if rc == nil {
			return Sinks{}, errors.New("redis sink configured without a client")
		}
		store := crdt.NewRedisStore(rc, logger)
		s.Applier = append(s.Applier, store)
		if s.Progress == nil {
			s.Progress = activity.RedisProgress{Store: store}
		}
	}
	if cfg.HasSink(config.SinkLog) {
		s.Applier = append(s.Applier, crdt.LogApplier{Logger: logger.Named("crdt")})
	}
	if s.Progress == nil {
		return Sinks{}, errors.New("no sink can record progress")
	}
	return s, nil
}

// NewUtxoStore opens the configured store. The returned closer releases
// whatever the store opened itself.
func NewUtxoStore(cfg config.Config, rc *redis.Client, logger *zap.Logger) (utxo.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.UtxoStore {
	case config.StoreMemory:
		return utxo.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		if rc == nil {
			return nil, noop, errors.New("redis utxo store configured without a client")
		}
		return utxo.NewRedisStore(rc, cfg.SpentTTL, logger), noop, nil
	case config.StoreBadger:
		db, err := utxo.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, noop, err
		}
		return utxo.NewBadgerStore(db, cfg.SpentTTL, logger), db.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown utxo store %q", cfg.UtxoStore)
}

// NewReducers builds one reducer per configured DEX family and returns the
// marker policies the UTXO tracker has to keep.
func NewReducers(cfg config.Config, logger *zap.Logger) ([]*liquidity.Reducer, []ledger.PolicyID, error) {
	reducers := make([]*liquidity.Reducer, 0, len(cfg.Reducers))
	markers := make([]ledger.PolicyID, 0, len(cfg.Reducers))
	for _, rc := range cfg.Reducers {
		r, err := liquidity.NewReducer(rc, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("reducer %s: %w", rc.Name(), err)
		}
		reducers = append(reducers, r)
		markers = append(markers, r.Marker())
	}
	return reducers, markers, nil
}

// needsRedis reports whether any configured component talks to Redis.
func needsRedis(cfg config.Config) bool {
	return cfg.HasSink(config.SinkRedis) || cfg.UtxoStore == config.StoreRedis
}
