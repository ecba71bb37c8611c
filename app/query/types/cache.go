package types

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoadFunc reads the members of a set from the backing store.
type LoadFunc func(ctx context.Context, set string) ([]string, error)

// PairCache keeps set members read from Redis until the command stream
// reports a change to that set. Concurrent misses on one set share a load.
type PairCache struct {
	sets   *xsync.Map[string, []string]
	flight singleflight.Group
	// epoch moves on every invalidation; a load that raced one is not stored
	epoch  atomic.Uint64
	logger *zap.Logger
}

func NewPairCache(logger *zap.Logger) *PairCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairCache{sets: xsync.NewMap[string, []string](), logger: logger}
}

// Members returns the cached members of set, loading them on a miss.
// Members are sorted so responses are stable.
func (c *PairCache) Members(ctx context.Context, set string, load LoadFunc) ([]string, error) {
	if members, ok := c.sets.Load(set); ok {
		return members, nil
	}
	v, err, _ := c.flight.Do(set, func() (interface{}, error) {
		epoch := c.epoch.Load()
		members, err := load(ctx, set)
		if err != nil {
			return nil, err
		}
		slices.Sort(members)
		if c.epoch.Load() == epoch {
			c.sets.Store(set, members)
		}
		return members, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (c *PairCache) Invalidate(set string) {
	c.epoch.Add(1)
	c.sets.Delete(set)
	c.flight.Forget(set)
}

func (c *PairCache) Len() int {
	return c.sets.Size()
}

// HandleMessage invalidates the set named by a command stream entry.
func (c *PairCache) HandleMessage(_ context.Context, msg redis.Message) error {
	set := msg.GetString("set")
	if set == "" {
		ev, err := crdt.DecodeFeedEvent(msg.GetData())
		if err != nil {
			c.logger.Warn("Skipping undecodable command entry", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		set = ev.Set
	}
	c.Invalidate(set)
	return nil
}
