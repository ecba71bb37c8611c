package activity

import (
	"context"
	"testing"

	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/db/models/reducer"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/canopy-network/liquidityx/pkg/plutus"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	markerHex = "93744265ed9762d8fa52c4aacacc703aa8c81de9f6d1a59f2299235b"
	minHex    = "29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6"
	// MinSwap ADA/MIN pool datum captured from mainnet.
	adaMinDatum = "d8799fd8799f4040ffd8799f581c29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6434d494eff1b00004ce6fb73282200d87a80ff"
	adaMinSet   = "pools._._:_29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6.4d494e_"
)

type mockRPC struct{ mock.Mock }

func (m *mockRPC) ChainHead(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) Tip(ctx context.Context) (rpc.Tip, error) {
	args := m.Called(ctx)
	return args.Get(0).(rpc.Tip), args.Error(1)
}

func (m *mockRPC) BlockByHeight(ctx context.Context, height uint64) (ledger.Block, error) {
	args := m.Called(ctx, height)
	return args.Get(0).(ledger.Block), args.Error(1)
}

func (m *mockRPC) UtxosByRefs(ctx context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	args := m.Called(ctx, refs)
	out, _ := args.Get(0).(map[ledger.OutputRef]ledger.Output)
	return out, args.Error(1)
}

type memoryProgress struct {
	last    uint64
	records []reducer.ReduceProgress
}

func (p *memoryProgress) LastReduced(context.Context) (uint64, error) { return p.last, nil }

func (p *memoryProgress) RecordReduced(_ context.Context, r reducer.ReduceProgress) error {
	p.records = append(p.records, r)
	if r.Height > p.last {
		p.last = r.Height
	}
	return nil
}

func hash(b byte) ledger.Hash {
	var h ledger.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func mustPolicy(t *testing.T, s string) ledger.PolicyID {
	t.Helper()
	p, err := ledger.ParsePolicyID(s)
	require.NoError(t, err)
	return p
}

func poolOutput(t *testing.T, coin, minQty uint64) ledger.Output {
	t.Helper()
	d, err := plutus.DecodeHex(adaMinDatum)
	require.NoError(t, err)
	raw, err := plutus.Encode(d)
	require.NoError(t, err)
	return ledger.Output{
		Address: "addr_pool",
		Value: ledger.Value{
			Coin: coin,
			Assets: []ledger.NativeAsset{
				{Policy: mustPolicy(t, markerHex), Name: ledger.HexBytes("pool-nft"), Quantity: 1},
				{Policy: mustPolicy(t, minHex), Name: ledger.HexBytes("MIN"), Quantity: minQty},
			},
		},
		Datum: &ledger.Datum{Inline: raw},
	}
}

// chain returns two blocks: height 1 opens an ADA/MIN pool, height 2 swaps against it.
func chain(t *testing.T) (ledger.Block, ledger.Block) {
	open := ledger.Block{Height: 1, Slot: 100, Hash: hash(0xb1), Txs: []ledger.Tx{{
		Hash:    hash(1),
		Valid:   true,
		Inputs:  []ledger.OutputRef{{TxHash: hash(9), Index: 0}},
		Outputs: []ledger.Output{poolOutput(t, 1000, 2000)},
	}}}
	swap := ledger.Block{Height: 2, Slot: 120, Hash: hash(0xb2), Txs: []ledger.Tx{{
		Hash:    hash(2),
		Valid:   true,
		Inputs:  []ledger.OutputRef{{TxHash: hash(1), Index: 0}},
		Outputs: []ledger.Output{poolOutput(t, 1100, 1820)},
	}}}
	return open, swap
}

func newContext(t *testing.T, client rpc.Client) (*Context, *crdt.MemoryStore, *memoryProgress) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	r, err := liquidity.NewReducer(liquidity.Config{PoolPrefix: "pools", DexPrefix: "min", PoolCurrencySymbol: markerHex}, logger)
	require.NoError(t, err)

	store := utxo.NewMemoryStore()
	sets := crdt.NewMemoryStore()
	progress := &memoryProgress{}
	return &Context{
		Logger:   logger,
		Pipeline: "test",
		Reducers: []*liquidity.Reducer{r},
		Resolver: utxo.NewResolver(store, nil, nil, utxo.ResolverConfig{}, logger),
		Tracker:  utxo.NewTracker(store, []ledger.PolicyID{r.Marker()}, logger),
		Applier:  sets,
		Progress: progress,
		RPC:      client,
	}, sets, progress
}
