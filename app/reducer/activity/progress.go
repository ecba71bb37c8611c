package activity

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
)

// RedisProgress reads progress from the block point the Redis sink writes
// together with every block's commands.
type RedisProgress struct {
	Store *crdt.RedisStore
}

func (p RedisProgress) LastReduced(ctx context.Context) (uint64, error) {
	pt, ok, err := p.Store.LastPoint(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return pt.Height, nil
}

// RecordReduced is a no-op; the point was written by Apply.
func (RedisProgress) RecordReduced(context.Context, reducer.ReduceProgress) error { return nil }
