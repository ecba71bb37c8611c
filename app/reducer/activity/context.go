package activity

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/metrics"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"go.uber.org/zap"
)

// ProgressStore remembers which heights were reduced.
type ProgressStore interface {
	LastReduced(ctx context.Context) (uint64, error)
	RecordReduced(ctx context.Context, p reducer.ReduceProgress) error
}

type Context struct {
	Logger   *zap.Logger
	Pipeline string

	Reducers []*liquidity.Reducer
	Resolver *utxo.Resolver
	Tracker  *utxo.Tracker
	// Applier receives every block's commands, normally a crdt.MultiApplier
	// over the configured sinks.
	Applier  crdt.Applier
	Progress ProgressStore
	RPC      rpc.Client
	Metrics  *metrics.Metrics

	// StartHeight is the first height reduced on an empty progress store.
	StartHeight uint64
}
