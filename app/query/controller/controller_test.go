package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/canopy-network/liquidityx/app/query/types"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	adaMin   = "_._:_29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6.4d494e_"
	minValue = `{"dex":"min","fee":0.003,"pool_id":"08","token_a":"1000","token_b":"2000"}`
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Apply(ctx context.Context, at crdt.Point, cmds []crdt.Command) error {
	return m.Called(ctx, at, cmds).Error(0)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) DatabaseName() string { return "liquidityx_test" }

func (m *mockStore) RecordReduced(ctx context.Context, p reducer.ReduceProgress) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) LastReduced(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockStore) HasReduced(ctx context.Context, height uint64) (bool, error) {
	args := m.Called(ctx, height)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) FindGaps(ctx context.Context) ([]reducer.Gap, error) {
	args := m.Called(ctx)
	return args.Get(0).([]reducer.Gap), args.Error(1)
}

func (m *mockStore) History(ctx context.Context, set string, limit int) ([]reducer.CommandRow, error) {
	args := m.Called(ctx, set, limit)
	return args.Get(0).([]reducer.CommandRow), args.Error(1)
}

// newTestApp builds an app over miniredis. history may be nil.
func newTestApp(t *testing.T, history *mockStore) (*types.App, *miniredis.Miniredis) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mr := miniredis.RunT(t)
	rc, err := redis.New(context.Background(), redis.Config{Addr: mr.Addr(), KeyPrefix: "test"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	app := &types.App{
		Redis:  rc,
		Store:  crdt.NewRedisStore(rc, logger),
		Cache:  types.NewPairCache(logger),
		Logger: logger,
	}
	if history != nil {
		app.History = history
	}
	return app, mr
}

func serve(t *testing.T, app *types.App, target string) *httptest.ResponseRecorder {
	t.Helper()
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	WithCORS(router).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestListPairs(t *testing.T) {
	app, _ := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, app.Store.Apply(ctx, crdt.Point{Height: 1}, []crdt.Command{
		crdt.SetAdd("pools", adaMin, minValue),
		crdt.SetAdd("pools", "_._:_ab.4d_", minValue),
		crdt.SetAdd("sundae", "_._:_ab.4d_", minValue),
	}))

	rec := serve(t, app, "/pairs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"pools." + adaMin, "pools._._:_ab.4d_", "sundae._._:_ab.4d_"}, decode[PairsResponse](t, rec).Pairs)

	rec = serve(t, app, "/pairs?pattern=sundae.*")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sundae._._:_ab.4d_"}, decode[PairsResponse](t, rec).Pairs)

	rec = serve(t, app, "/pairs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[PairsResponse](t, rec).Pairs, 1)

	rec = serve(t, app, "/pairs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPair(t *testing.T) {
	app, _ := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, app.Store.Apply(ctx, crdt.Point{Height: 1}, []crdt.Command{
		crdt.SetAdd("pools", adaMin, minValue),
		crdt.SetAdd("pools", adaMin, "not json"),
	}))

	rec := serve(t, app, "/pairs/pools."+adaMin)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PairResponse](t, rec)
	assert.Equal(t, "pools."+adaMin, resp.Set)
	require.Len(t, resp.Pools, 1)
	assert.Equal(t, "1000", resp.Pools[0].TokenA)
	assert.Equal(t, "2000", resp.Pools[0].TokenB)
	require.NotNil(t, resp.Pools[0].Dex)
	assert.Equal(t, "min", *resp.Pools[0].Dex)

	rec = serve(t, app, "/pairs/pools._._:_ff.00_")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPairServesCacheUntilInvalidated(t *testing.T) {
	app, _ := newTestApp(t, nil)
	ctx := context.Background()
	set := "pools." + adaMin
	require.NoError(t, app.Store.Apply(ctx, crdt.Point{Height: 1}, []crdt.Command{crdt.SetAdd("pools", adaMin, minValue)}))

	require.Equal(t, http.StatusOK, serve(t, app, "/pairs/"+set).Code)
	assert.Equal(t, 1, app.Cache.Len())

	require.NoError(t, app.Store.Apply(ctx, crdt.Point{Height: 2}, []crdt.Command{crdt.SetRemove("pools", adaMin, minValue)}))
	assert.Equal(t, http.StatusOK, serve(t, app, "/pairs/"+set).Code)

	require.NoError(t, app.Cache.HandleMessage(ctx, redis.Message{Values: map[string]interface{}{"set": set}}))
	assert.Equal(t, http.StatusNotFound, serve(t, app, "/pairs/"+set).Code)
}

func TestPairHistory(t *testing.T) {
	history := &mockStore{}
	app, _ := newTestApp(t, history)
	set := "pools." + adaMin
	rows := []reducer.CommandRow{
		{Height: 2, Seq: 0, Op: "remove", Set: set, Value: minValue, AppliedAt: time.Unix(20, 0).UTC()},
		{Height: 1, Seq: 0, Op: "add", Set: set, Value: minValue, AppliedAt: time.Unix(10, 0).UTC()},
	}
	history.On("History", mock.Anything, set, 2).Return(rows, nil)

	rec := serve(t, app, "/pairs/"+set+"/history?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HistoryResponse](t, rec)
	assert.Equal(t, set, resp.Set)
	require.Len(t, resp.Commands, 2)
	assert.Equal(t, "remove", resp.Commands[0].Op)
	history.AssertExpectations(t)
}

func TestPairHistoryWithoutClickHouse(t *testing.T) {
	app, _ := newTestApp(t, nil)
	rec := serve(t, app, "/pairs/pools."+adaMin+"/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProgress(t *testing.T) {
	t.Run("redis only", func(t *testing.T) {
		app, _ := newTestApp(t, nil)
		rec := serve(t, app, "/progress")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[ProgressResponse](t, rec).Started)

		require.NoError(t, app.Store.Apply(context.Background(), crdt.Point{Height: 9, Slot: 90, Hash: "cafe"}, nil))
		rec = serve(t, app, "/progress")
		resp := decode[ProgressResponse](t, rec)
		assert.True(t, resp.Started)
		assert.Equal(t, uint64(9), resp.Height)
		assert.Equal(t, "cafe", resp.Hash)
		assert.Nil(t, resp.LastReduced)
	})

	t.Run("with gaps", func(t *testing.T) {
		history := &mockStore{}
		app, _ := newTestApp(t, history)
		history.On("LastReduced", mock.Anything).Return(uint64(12), nil)
		history.On("FindGaps", mock.Anything).Return([]reducer.Gap{{From: 4, To: 6}}, nil)

		rec := serve(t, app, "/progress")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ProgressResponse](t, rec)
		require.NotNil(t, resp.LastReduced)
		assert.Equal(t, uint64(12), *resp.LastReduced)
		assert.Equal(t, []reducer.Gap{{From: 4, To: 6}}, resp.Gaps)
		history.AssertExpectations(t)
	})
}

func TestHealth(t *testing.T) {
	app, mr := newTestApp(t, nil)
	assert.Equal(t, http.StatusOK, serve(t, app, "/health").Code)

	mr.SetError("LOADING")
	assert.Equal(t, http.StatusInternalServerError, serve(t, app, "/health").Code)
}

func TestMetrics(t *testing.T) {
	app, _ := newTestApp(t, nil)
	require.Equal(t, http.StatusOK, serve(t, app, "/pairs").Code)
	require.Equal(t, http.StatusOK, serve(t, app, "/health").Code)

	rec := serve(t, app, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "liquidityx_http_requests_total")
	assert.Contains(t, body, `route="/pairs"`)
	assert.Contains(t, body, `route="/health"`)
	assert.Contains(t, body, "liquidityx_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	app, _ := newTestApp(t, nil)
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	WithCORS(router).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/pairs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
