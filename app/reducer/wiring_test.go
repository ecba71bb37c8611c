package reducer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/canopy-network/liquidityx/app/reducer/activity"
	"github.com/canopy-network/liquidityx/pkg/config"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/metrics"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const markerHex = "93744265ed9762d8fa52c4aacacc703aa8c81de9f6d1a59f2299235b"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := redis.New(context.Background(), redis.Config{Addr: mr.Addr(), KeyPrefix: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestNewSinks(t *testing.T) {
	logger := zaptest.NewLogger(t)
	rc := newRedis(t)

	s, err := NewSinks(config.Config{Sinks: []string{config.SinkRedis, config.SinkLog}}, rc, nil, logger)
	require.NoError(t, err)
	require.Len(t, s.Applier, 2)
	assert.IsType(t, &crdt.RedisStore{}, s.Applier[0])
	assert.IsType(t, crdt.LogApplier{}, s.Applier[1])
	assert.IsType(t, activity.RedisProgress{}, s.Progress)

	ctx := context.Background()
	require.NoError(t, s.Applier.Apply(ctx, crdt.Point{Height: 12, Slot: 90, Hash: "ab"}, []crdt.Command{crdt.SetAdd("pools", "a:b", "v")}))
	last, err := s.Progress.LastReduced(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), last)

	_, err = NewSinks(config.Config{Sinks: []string{config.SinkRedis}}, nil, nil, logger)
	assert.Error(t, err)
	_, err = NewSinks(config.Config{Sinks: []string{config.SinkClickHouse}}, nil, nil, logger)
	assert.Error(t, err)
	_, err = NewSinks(config.Config{Sinks: []string{config.SinkLog}}, nil, nil, logger)
	assert.Error(t, err)
}

func TestNewUtxoStore(t *testing.T) {
	logger := zaptest.NewLogger(t)
	base := config.Config{SpentTTL: time.Hour}

	cfg := base
	cfg.UtxoStore = config.StoreMemory
	s, closer, err := NewUtxoStore(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &utxo.MemoryStore{}, s)
	require.NoError(t, closer())

	cfg.UtxoStore = config.StoreRedis
	_, _, err = NewUtxoStore(cfg, nil, logger)
	assert.Error(t, err)
	s, _, err = NewUtxoStore(cfg, newRedis(t), logger)
	require.NoError(t, err)
	assert.IsType(t, &utxo.RedisStore{}, s)

	cfg.UtxoStore = config.StoreBadger
	cfg.BadgerDir = t.TempDir()
	s, closer, err = NewUtxoStore(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &utxo.BadgerStore{}, s)
	require.NoError(t, closer())

	cfg.UtxoStore = "sqlite"
	_, _, err = NewUtxoStore(cfg, nil, logger)
	assert.Error(t, err)
}

func TestNewReducers(t *testing.T) {
	cfg := config.Config{Reducers: []liquidity.Config{
		{PoolPrefix: "min", PoolCurrencySymbol: markerHex},
		{PoolPrefix: "other", PoolCurrencySymbol: "158fd94afa7ee07055ccdee0ba68637fe0e700d0e58e8d12eca5be46"},
	}}
	reducers, markers, err := NewReducers(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Len(t, reducers, 2)
	require.Len(t, markers, 2)
	assert.Equal(t, reducers[1].Marker(), markers[1])

	cfg.Reducers = append(cfg.Reducers, liquidity.Config{PoolPrefix: "bad", PoolCurrencySymbol: "00"})
	_, _, err = NewReducers(cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "reducer bad")
}

func TestNeedsRedis(t *testing.T) {
	assert.True(t, needsRedis(config.Config{Sinks: []string{config.SinkRedis}, UtxoStore: config.StoreMemory}))
	assert.True(t, needsRedis(config.Config{Sinks: []string{config.SinkClickHouse}, UtxoStore: config.StoreRedis}))
	assert.False(t, needsRedis(config.Config{Sinks: []string{config.SinkClickHouse}, UtxoStore: config.StoreBadger}))
}

func TestOpsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveBlock(5, liquidity.Stats{Added: 1}, time.Millisecond)
	a := &App{Config: config.Config{MetricsAddr: ":0"}, Logger: zaptest.NewLogger(t)}
	a.SetupServer(reg)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	a.ready.Store(true)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	rec := get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "liquidityx_reduced_height 5")
}
