package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/canopy-network/liquidityx/app/reducer/types"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
)

func TestReduceBlockInOrder(t *testing.T) {
	ctx := context.Background()
	client := &mockRPC{}
	open, swap := chain(t)
	client.On("BlockByHeight", mock.Anything, uint64(1)).Return(open, nil).Once()
	client.On("BlockByHeight", mock.Anything, uint64(2)).Return(swap, nil).Once()
	ac, sets, progress := newContext(t, client)

	out, err := ac.ReduceBlock(ctx, types.ReduceBlockInput{Height: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Stats.Added)
	assert.Equal(t, 1, out.Stats.Unresolved)
	assert.Equal(t, 1, out.Stored)
	assert.Equal(t, open.Hash.String(), out.Hash)
	require.NoError(t, ac.RecordReduced(ctx, types.RecordReducedInput{Output: out, TotalMs: 3}))

	out, err = ac.ReduceBlock(ctx, types.ReduceBlockInput{Height: 2})
	require.NoError(t, err)
	assert.Equal(t, liquidity.Stats{Txs: 1, Consumed: 1, Produced: 1, Added: 1, Removed: 1}, out.Stats)
	assert.Equal(t, map[string]liquidity.Stats{"pools": out.Stats}, out.Detail)
	assert.Equal(t, 2, out.Commands())
	require.NoError(t, ac.RecordReduced(ctx, types.RecordReducedInput{Output: out, TotalMs: 4}))

	assert.Equal(t, []string{`{"dex":"min","token_a":"1100","token_b":"1820"}`}, sets.Members(adaMinSet))

	require.Len(t, progress.records, 2)
	rec := progress.records[1]
	assert.Equal(t, "test", rec.Pipeline)
	assert.Equal(t, uint64(2), rec.Height)
	assert.Equal(t, uint64(120), rec.Slot)
	assert.Equal(t, uint32(2), rec.Commands)
	assert.Equal(t, 4.0, rec.ReducingTimeMs)
	assert.JSONEq(t, `{"pools":{"txs":1,"consumed":1,"produced":1,"unresolved":0,"added":1,"removed":1}}`, rec.ReducingDetail)

	last, err := ac.GetLastReduced(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
	client.AssertExpectations(t)
}

func TestReduceBlockNotReady(t *testing.T) {
	client := &mockRPC{}
	client.On("BlockByHeight", mock.Anything, uint64(7)).
		Return(ledger.Block{}, fmt.Errorf("height 7: %w", rpc.ErrBlockNotReady))
	ac, _, _ := newContext(t, client)

	_, err := ac.ReduceBlock(context.Background(), types.ReduceBlockInput{Height: 7})
	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeBlockNotReady, appErr.Type())
}

func TestReduceBlockMissingDataFails(t *testing.T) {
	client := &mockRPC{}
	_, swap := chain(t)
	client.On("BlockByHeight", mock.Anything, uint64(2)).Return(swap, nil)
	ac, sets, _ := newContext(t, client)
	ac.Resolver = utxo.NewResolver(utxo.NewMemoryStore(), nil, nil, utxo.ResolverConfig{Action: utxo.ActionFail}, nil)

	_, err := ac.ReduceBlock(context.Background(), types.ReduceBlockInput{Height: 2})
	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeMissingData, appErr.Type())
	assert.ErrorIs(t, err, utxo.ErrMissingData)
	assert.Empty(t, sets.Log())
}

func TestReduceBlockSinkFailure(t *testing.T) {
	client := &mockRPC{}
	open, _ := chain(t)
	client.On("BlockByHeight", mock.Anything, uint64(1)).Return(open, nil)
	ac, _, _ := newContext(t, client)
	store := utxo.NewMemoryStore()
	ac.Tracker = utxo.NewTracker(store, nil, nil)
	ac.Applier = crdt.MultiApplier{failingApplier{}}

	_, err := ac.ReduceBlock(context.Background(), types.ReduceBlockInput{Height: 1})
	var appErr *sdktemporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeSink, appErr.Type())
	assert.Zero(t, store.Len(), "outputs are tracked only after the sinks accepted the block")
}

func TestGetLatestHeadAndStartHeight(t *testing.T) {
	ctx := context.Background()
	client := &mockRPC{}
	client.On("ChainHead", mock.Anything).Return(uint64(900), nil)
	ac, _, progress := newContext(t, client)

	head, err := ac.GetLatestHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), head)

	ac.StartHeight = 500
	last, err := ac.GetLastReduced(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(499), last)

	progress.last = 650
	last, err = ac.GetLastReduced(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(650), last)
}

type failingApplier struct{}

func (failingApplier) Apply(context.Context, crdt.Point, []crdt.Command) error {
	return errors.New("sink down")
}
