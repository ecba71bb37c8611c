package utxo

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

// Store remembers outputs that may later be consumed.
type Store interface {
	// Get returns the known outputs among refs; unknown refs are absent from the map.
	Get(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error)
	Put(ctx context.Context, produced []ledger.Produced) error
	// Spend marks refs as consumed. Stores may keep them around for a while so
	// a retried block can still resolve them.
	Spend(ctx context.Context, refs []ledger.OutputRef) error
}

// Lookup fetches outputs from an authoritative source such as a node.
type Lookup interface {
	UtxosByRefs(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error)
}
