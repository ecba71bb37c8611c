package reducer

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
)

// Store is the subset of DB used by activities and the query API.
type Store interface {
	crdt.Applier
	Close() error
	DatabaseName() string
	RecordReduced(ctx context.Context, p reducer.ReduceProgress) error
	LastReduced(ctx context.Context) (uint64, error)
	HasReduced(ctx context.Context, height uint64) (bool, error)
	FindGaps(ctx context.Context) ([]reducer.Gap, error)
	History(ctx context.Context, set string, limit int) ([]reducer.CommandRow, error)
}

var _ Store = (*DB)(nil)
