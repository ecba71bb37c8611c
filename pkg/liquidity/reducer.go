package liquidity

import (
	"context"
	"fmt"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"go.uber.org/zap"
)

// Resolver locates an output consumed by the block being reduced.
type Resolver interface {
	Resolve(ctx context.Context, ref ledger.OutputRef) utxo.Resolution
}

// Stats counts what one ReduceBlock call saw and emitted.
type Stats struct {
	Txs        int `json:"txs"`
	Consumed   int `json:"consumed"`
	Produced   int `json:"produced"`
	Unresolved int `json:"unresolved"`
	Added      int `json:"added"`
	Removed    int `json:"removed"`
}

func (s *Stats) Merge(o Stats) {
	s.Txs += o.Txs
	s.Consumed += o.Consumed
	s.Produced += o.Produced
	s.Unresolved += o.Unresolved
	s.Added += o.Added
	s.Removed += o.Removed
}

// Reducer turns blocks into set commands keyed by token pair. It keeps no
// state between blocks.
type Reducer struct {
	cfg    Config
	marker ledger.PolicyID
	logger *zap.Logger
}

func NewReducer(cfg Config, logger *zap.Logger) (*Reducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	marker, err := ledger.ParsePolicyID(cfg.PoolCurrencySymbol)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{
		cfg:    cfg,
		marker: marker,
		logger: logger.With(zap.String("pool_prefix", cfg.PoolPrefix), zap.String("dex", cfg.DexPrefix)),
	}, nil
}

func (r *Reducer) Config() Config { return r.cfg }

// Marker is the policy that identifies pool outputs.
func (r *Reducer) Marker() ledger.PolicyID { return r.marker }

// ReduceBlock emits, per transaction, a Remove for every consumed pool output
// and then an Add for every produced one. Outputs that are not pools, or
// cannot be read as one, are skipped. A sink error aborts the block.
func (r *Reducer) ReduceBlock(ctx context.Context, block ledger.Block, resolver Resolver, sink crdt.Sink) (Stats, error) {
	var st Stats
	for _, tx := range block.Txs {
		st.Txs++

		for _, ref := range tx.Consumes() {
			st.Consumed++
			res := resolver.Resolve(ctx, ref)
			if res.Status != utxo.StatusFound {
				st.Unresolved++
				continue
			}
			key, value, ok := r.KeyValue(tx, res.Output)
			if !ok {
				continue
			}
			if err := sink.Emit(ctx, crdt.SetRemove(r.cfg.PoolPrefix, key, value)); err != nil {
				return st, fmt.Errorf("emit remove for %s at height %d: %w", ref, block.Height, err)
			}
			st.Removed++
		}

		for _, p := range tx.Produces() {
			st.Produced++
			key, value, ok := r.KeyValue(tx, p.Output)
			if !ok {
				continue
			}
			if err := sink.Emit(ctx, crdt.SetAdd(r.cfg.PoolPrefix, key, value)); err != nil {
				return st, fmt.Errorf("emit add for %s at height %d: %w", p.Ref, block.Height, err)
			}
			st.Added++
		}
	}

	if st.Added+st.Removed > 0 {
		r.logger.Debug("reduced block",
			zap.Uint64("height", block.Height),
			zap.Int("added", st.Added),
			zap.Int("removed", st.Removed))
	}
	return st, nil
}

// KeyValue recognizes out as a pool of this reducer's DEX and renders it.
// Datum hashes are resolved against the witnesses of tx.
func (r *Reducer) KeyValue(tx ledger.Tx, out ledger.Output) (string, string, bool) {
	if !out.Value.HasPolicy(r.marker) {
		return "", "", false
	}
	d, ok := ResolveDatum(out, tx)
	if !ok {
		return "", "", false
	}
	pd, ok := DecodePoolDatum(d)
	if !ok {
		return "", "", false
	}

	var fee *float64
	if pd.Fee != nil {
		f := pd.Fee.Float()
		fee = &f
	}
	return BuildKeyValue(
		pd.Pair,
		r.cfg.DexPrefix,
		ReserveOf(pd.Pair.A, out.Value),
		ReserveOf(pd.Pair.B, out.Value),
		fee,
		pd.PoolID,
	)
}
