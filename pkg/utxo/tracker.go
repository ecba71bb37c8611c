package utxo

import (
	"context"
	"fmt"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"go.uber.org/zap"
)

// Tracker keeps the Store in step with the chain. Only outputs holding one of
// the marker policies are stored; with no markers every output is.
type Tracker struct {
	store   Store
	markers []ledger.PolicyID
	logger  *zap.Logger
}

type TrackStats struct {
	Stored int `json:"stored"`
	Spent  int `json:"spent"`
}

func NewTracker(store Store, markers []ledger.PolicyID, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, markers: markers, logger: logger}
}

func (t *Tracker) keep(o ledger.Output) bool {
	if len(t.markers) == 0 {
		return true
	}
	for _, m := range t.markers {
		if o.Value.HasPolicy(m) {
			return true
		}
	}
	return false
}

// Track stores the block's relevant outputs, then spends what it consumed.
func (t *Tracker) Track(ctx context.Context, block ledger.Block) (TrackStats, error) {
	var (
		produced []ledger.Produced
		consumed []ledger.OutputRef
	)
	for _, tx := range block.Txs {
		for _, p := range tx.Produces() {
			if t.keep(p.Output) {
				produced = append(produced, p)
			}
		}
		consumed = append(consumed, tx.Consumes()...)
	}

	if err := t.store.Put(ctx, produced); err != nil {
		return TrackStats{}, fmt.Errorf("track outputs at height %d: %w", block.Height, err)
	}
	if err := t.store.Spend(ctx, consumed); err != nil {
		return TrackStats{}, fmt.Errorf("spend inputs at height %d: %w", block.Height, err)
	}

	t.logger.Debug("tracked block outputs",
		zap.Uint64("height", block.Height),
		zap.Int("stored", len(produced)),
		zap.Int("spent", len(consumed)))
	return TrackStats{Stored: len(produced), Spent: len(consumed)}, nil
}
