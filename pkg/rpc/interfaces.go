package rpc

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

// Client is what the reducer needs from a node.
type Client interface {
	ChainHead(ctx context.Context) (uint64, error)
	Tip(ctx context.Context) (Tip, error)
	BlockByHeight(ctx context.Context, height uint64) (ledger.Block, error)
	UtxosByRefs(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error)
}
