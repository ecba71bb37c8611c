package types

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPairCache(t *testing.T) {
	ctx := context.Background()
	cache := NewPairCache(zaptest.NewLogger(t))

	loads := 0
	load := func(_ context.Context, set string) ([]string, error) {
		loads++
		return []string{"b", "a"}, nil
	}

	members, err := cache.Members(ctx, "pools.x", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)
	_, err = cache.Members(ctx, "pools.x", load)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	t.Run("set field", func(t *testing.T) {
		require.NoError(t, cache.HandleMessage(ctx, redis.Message{Values: map[string]interface{}{"set": "pools.x"}}))
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("data field", func(t *testing.T) {
		_, err := cache.Members(ctx, "pools.x", load)
		require.NoError(t, err)
		data := `{"op":"add","prefix":"pools","key":"x","value":"v","height":3}`
		require.NoError(t, cache.HandleMessage(ctx, redis.Message{Values: map[string]interface{}{"data": data}}))
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("undecodable entry is skipped", func(t *testing.T) {
		_, err := cache.Members(ctx, "pools.x", load)
		require.NoError(t, err)
		require.NoError(t, cache.HandleMessage(ctx, redis.Message{ID: "1-0", Values: map[string]interface{}{"data": "{"}}))
		assert.Equal(t, 1, cache.Len())
	})
}

func TestPairCacheDoesNotCacheErrors(t *testing.T) {
	cache := NewPairCache(nil)
	boom := errors.New("boom")
	_, err := cache.Members(context.Background(), "pools.x", func(context.Context, string) ([]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
}

func TestPairCacheSharesConcurrentLoads(t *testing.T) {
	cache := NewPairCache(nil)
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context, string) ([]string, error) {
		loads.Add(1)
		<-release
		return []string{"a"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			members, err := cache.Members(context.Background(), "pools.x", load)
			assert.NoError(t, err)
			assert.Equal(t, []string{"a"}, members)
		}()
	}
	require.Eventually(t, func() bool { return loads.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, loads.Load(), int32(2))
	assert.Equal(t, 1, cache.Len())
}

func TestPairCacheDropsLoadRacingInvalidation(t *testing.T) {
	cache := NewPairCache(nil)
	members, err := cache.Members(context.Background(), "pools.x", func(context.Context, string) ([]string, error) {
		cache.Invalidate("pools.x")
		return []string{"stale"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, members)
	assert.Equal(t, 0, cache.Len())
}
