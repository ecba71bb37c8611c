package activity

import (
	"context"
	"errors"
	"time"

	"github.com/canopy-network/liquidityx/app/reducer/types"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/go-jose/go-jose/v4/json"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

const (
	ErrTypeBlockNotReady = "block_not_ready"
	ErrTypeMissingData   = "missing_data"
	ErrTypeSink          = "sink"
)

// GetLatestHead returns the node's current height.
func (c *Context) GetLatestHead(ctx context.Context) (uint64, error) {
	return c.RPC.ChainHead(ctx)
}

// GetLastReduced returns the last reduced height, never less than StartHeight-1.
func (c *Context) GetLastReduced(ctx context.Context) (uint64, error) {
	last, err := c.Progress.LastReduced(ctx)
	if err != nil {
		return 0, err
	}
	if c.StartHeight > 0 && last < c.StartHeight-1 {
		return c.StartHeight - 1, nil
	}
	return last, nil
}

// ReduceBlock fetches one block, runs every reducer over it, applies the
// resulting commands to the sinks and then updates the UTXO store. Every step
// is safe to repeat, so a retried activity converges on the same state.
func (c *Context) ReduceBlock(ctx context.Context, in types.ReduceBlockInput) (types.ReduceBlockOutput, error) {
	start := time.Now()

	block, err := c.RPC.BlockByHeight(ctx, in.Height)
	if err != nil {
		c.Metrics.ObserveFailure()
		if errors.Is(err, rpc.ErrBlockNotReady) {
			return types.ReduceBlockOutput{}, sdktemporal.NewApplicationErrorWithCause("block not ready", ErrTypeBlockNotReady, err)
		}
		return types.ReduceBlockOutput{}, err
	}

	view, err := c.Resolver.ForBlock(ctx, block)
	if err != nil {
		c.Metrics.ObserveFailure()
		if errors.Is(err, utxo.ErrMissingData) {
			return types.ReduceBlockOutput{}, sdktemporal.NewApplicationErrorWithCause("missing consumed outputs", ErrTypeMissingData, err)
		}
		return types.ReduceBlockOutput{}, err
	}

	out := types.ReduceBlockOutput{
		Height: block.Height,
		Slot:   block.Slot,
		Hash:   block.Hash.String(),
		Detail: make(map[string]liquidity.Stats, len(c.Reducers)),
	}
	batch := crdt.NewBatch()
	for i, r := range c.Reducers {
		st, err := r.ReduceBlock(ctx, block, view, batch)
		if err != nil {
			c.Metrics.ObserveFailure()
			return types.ReduceBlockOutput{}, err
		}
		out.Detail[r.Config().Name()] = st
		if i == 0 {
			out.Stats = st
			continue
		}
		out.Stats.Added += st.Added
		out.Stats.Removed += st.Removed
	}

	at := crdt.Point{Slot: block.Slot, Height: block.Height, Hash: out.Hash}
	if err := batch.Flush(ctx, at, c.Applier); err != nil {
		c.Metrics.ObserveFailure()
		return types.ReduceBlockOutput{}, sdktemporal.NewApplicationErrorWithCause("apply commands", ErrTypeSink, err)
	}

	tracked, err := c.Tracker.Track(ctx, block)
	if err != nil {
		c.Metrics.ObserveFailure()
		return types.ReduceBlockOutput{}, err
	}
	out.Stored = tracked.Stored
	out.Spent = tracked.Spent

	took := time.Since(start)
	out.DurationMs = float64(took.Microseconds()) / 1000.0
	c.Metrics.ObserveBlock(block.Height, out.Stats, took)

	c.Logger.Debug("block reduced",
		zap.Uint64("height", block.Height),
		zap.Int("added", out.Stats.Added),
		zap.Int("removed", out.Stats.Removed),
		zap.Int("unresolved", out.Stats.Unresolved))
	return out, nil
}

// RecordReduced persists the progress row for a reduced block.
func (c *Context) RecordReduced(ctx context.Context, in types.RecordReducedInput) error {
	detail, err := json.Marshal(in.Output.Detail)
	if err != nil {
		detail = []byte("{}")
	}
	return c.Progress.RecordReduced(ctx, reducer.ReduceProgress{
		Pipeline:       c.Pipeline,
		Height:         in.Output.Height,
		Slot:           in.Output.Slot,
		BlockHash:      in.Output.Hash,
		ReducedAt:      time.Now().UTC(),
		ReducingTimeMs: in.TotalMs,
		Commands:       uint32(in.Output.Commands()),
		Unresolved:     uint32(in.Output.Stats.Unresolved),
		ReducingDetail: string(detail),
	})
}
