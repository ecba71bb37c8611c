package utxo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultLookupChunk = 100
	maxMissingLogged   = 20
)

type ResolverConfig struct {
	Action MissingDataAction
	// LookupChunk bounds how many refs go into one Lookup call.
	LookupChunk int
}

// Resolver finds consumed outputs in the block itself, then the Store, then
// the optional Lookup. What happens to refs none of them know is decided by
// the configured MissingDataAction.
type Resolver struct {
	store  Store
	lookup Lookup
	pool   pond.Pool
	cfg    ResolverConfig
	logger *zap.Logger
}

// NewResolver wires the sources together. lookup and pool may be nil; without
// a pool the lookup chunks run sequentially.
func NewResolver(store Store, lookup Lookup, pool pond.Pool, cfg ResolverConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LookupChunk <= 0 {
		cfg.LookupChunk = DefaultLookupChunk
	}
	return &Resolver{store: store, lookup: lookup, pool: pool, cfg: cfg, logger: logger}
}

// BlockView answers Resolve for the refs consumed by one block.
type BlockView struct {
	found   map[ledger.OutputRef]ledger.Output
	missing []ledger.OutputRef
}

func (v *BlockView) Resolve(_ context.Context, ref ledger.OutputRef) Resolution {
	if o, ok := v.found[ref]; ok {
		return Found(o)
	}
	return Resolution{Status: StatusMissing}
}

// Missing lists refs that could not be resolved by any source.
func (v *BlockView) Missing() []ledger.OutputRef { return v.missing }

// Found is how many consumed refs resolved.
func (v *BlockView) Found() int { return len(v.found) }

// ForBlock resolves every ref the block consumes. It fails on store errors, and
// on unresolved refs when the action is ActionFail.
func (r *Resolver) ForBlock(ctx context.Context, block ledger.Block) (*BlockView, error) {
	local := make(map[ledger.OutputRef]ledger.Output)
	for _, tx := range block.Txs {
		for _, p := range tx.Produces() {
			local[p.Ref] = p.Output
		}
	}

	view := &BlockView{found: make(map[ledger.OutputRef]ledger.Output)}
	seen := make(map[ledger.OutputRef]struct{})
	var need []ledger.OutputRef
	for _, tx := range block.Txs {
		for _, ref := range tx.Consumes() {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			if o, ok := local[ref]; ok {
				view.found[ref] = o
				continue
			}
			need = append(need, ref)
		}
	}
	if len(need) == 0 {
		return view, nil
	}

	stored, err := r.store.Get(ctx, need)
	if err != nil {
		return nil, fmt.Errorf("utxo store lookup at height %d: %w", block.Height, err)
	}
	need = r.collect(view, need, stored)

	if len(need) > 0 && r.lookup != nil {
		fetched, err := r.fetch(ctx, need)
		if err != nil {
			if r.cfg.Action == ActionFail {
				return nil, fmt.Errorf("utxo lookup at height %d: %w", block.Height, err)
			}
			r.logger.Warn("utxo lookup failed, treating refs as missing",
				zap.Uint64("height", block.Height),
				zap.Int("refs", len(need)),
				zap.Error(err))
		}
		need = r.collect(view, need, fetched)
	}

	view.missing = need
	if len(need) > 0 {
		switch r.cfg.Action {
		case ActionFail:
			return nil, fmt.Errorf("%w: %d at height %d, first %s", ErrMissingData, len(need), block.Height, need[0])
		case ActionWarn:
			for i, ref := range need {
				if i == maxMissingLogged {
					break
				}
				r.logger.Warn("consumed output not found",
					zap.Uint64("height", block.Height),
					zap.String("ref", ref.String()))
			}
		}
	}
	return view, nil
}

// collect moves resolved refs into view and returns the rest.
func (r *Resolver) collect(view *BlockView, need []ledger.OutputRef, got map[ledger.OutputRef]ledger.Output) []ledger.OutputRef {
	rest := need[:0]
	for _, ref := range need {
		if o, ok := got[ref]; ok {
			view.found[ref] = o
			continue
		}
		rest = append(rest, ref)
	}
	return rest
}

func (r *Resolver) fetch(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	chunks := utils.Chunk(refs, r.cfg.LookupChunk)
	out := make(map[ledger.OutputRef]ledger.Output, len(refs))

	if r.pool == nil || len(chunks) == 1 {
		var errs []error
		for _, chunk := range chunks {
			got, err := r.lookup.UtxosByRefs(ctx, chunk)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			for k, v := range got {
				out[k] = v
			}
		}
		return out, errors.Join(errs...)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, chunk := range chunks {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			got, err := r.lookup.UtxosByRefs(groupCtx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			for k, v := range got {
				out[k] = v
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}
