package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/canopy-network/liquidityx/pkg/crdt"
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/plutus"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	markerHex   = "93744265ed9762d8fa52c4aacacc703aa8c81de9f6d1a59f2299235b"
	minHex      = "29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6"
	adaMinKey   = "_._:_29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6.4d494e_"
	adaMinDatum = "d8799fd8799f4040ffd8799f581c29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6434d494eff1b00004ce6fb73282200d87a80ff"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOutput(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func hash(b byte) ledger.Hash {
	var h ledger.Hash
	h[0] = b
	return h
}

func poolOutput(t *testing.T, coin, minQty uint64) ledger.Output {
	t.Helper()
	marker, err := ledger.ParsePolicyID(markerHex)
	require.NoError(t, err)
	minPolicy, err := ledger.ParsePolicyID(minHex)
	require.NoError(t, err)
	d, err := plutus.DecodeHex(adaMinDatum)
	require.NoError(t, err)
	raw, err := plutus.Encode(d)
	require.NoError(t, err)
	return ledger.Output{
		Address: "addr_pool",
		Value: ledger.Value{
			Coin: coin,
			Assets: []ledger.NativeAsset{
				{Policy: marker, Name: ledger.HexBytes("pool-nft"), Quantity: 1},
				{Policy: minPolicy, Name: ledger.HexBytes("MIN"), Quantity: minQty},
			},
		},
		Datum: &ledger.Datum{Inline: raw},
	}
}

func writeFile(t *testing.T, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDecodeDatum(t *testing.T) {
	out, err := run(t, "decode-datum", adaMinDatum)
	require.NoError(t, err)

	var v datumView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "minswap", v.Protocol)
	assert.Equal(t, "ada", v.AssetA)
	assert.Equal(t, minHex+".4d494e", v.AssetB)
	assert.Equal(t, adaMinKey, v.Key)
	assert.Nil(t, v.Fee)

	out, err = run(t, "decode-datum", "--protocol", "MinSwap", adaMinDatum)
	require.NoError(t, err)
	assert.Contains(t, out, `"protocol":"minswap"`)
}

func TestDecodeDatumErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "not hex", args: []string{"decode-datum", "zz"}},
		{name: "not a pool", args: []string{"decode-datum", "d87980"}},
		{name: "other layout", args: []string{"decode-datum", "--protocol", "sundaeswap", adaMinDatum}},
		{name: "unknown protocol", args: []string{"decode-datum", "--protocol", "uniswap", adaMinDatum}},
		{name: "missing argument", args: []string{"decode-datum"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestReduceOpensPool(t *testing.T) {
	block := ledger.Block{Height: 1, Slot: 100, Hash: hash(0xb1), Txs: []ledger.Tx{{
		Hash:    hash(1),
		Valid:   true,
		Inputs:  []ledger.OutputRef{{TxHash: hash(9), Index: 0}},
		Outputs: []ledger.Output{poolOutput(t, 1000, 2000)},
	}}}
	path := writeFile(t, "block.json", block)

	out, err := run(t, "reduce", path, "--currency-symbol", markerHex, "--pool-prefix", "pools", "--dex-prefix", "min", "--stats")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 2)

	ev, err := crdt.DecodeFeedEvent([]byte(got[0]))
	require.NoError(t, err)
	assert.Equal(t, crdt.OpAdd, ev.Op)
	assert.Equal(t, "pools."+adaMinKey, ev.Set)
	assert.Equal(t, `{"dex":"min","token_a":"1000","token_b":"2000"}`, ev.Value)
	assert.Equal(t, uint64(1), ev.Height)
	assert.Contains(t, got[1], `"added":1`)
}

func TestReduceSwapWithKnownUtxos(t *testing.T) {
	prev := poolOutput(t, 1000, 2000)
	utxos := writeFile(t, "utxos.json", []utxoEntry{{Ref: ledger.OutputRef{TxHash: hash(1), Index: 0}, Output: prev}})
	block := ledger.Block{Height: 2, Slot: 120, Hash: hash(0xb2), Txs: []ledger.Tx{{
		Hash:    hash(2),
		Valid:   true,
		Inputs:  []ledger.OutputRef{{TxHash: hash(1), Index: 0}},
		Outputs: []ledger.Output{poolOutput(t, 1100, 1820)},
	}}}
	path := writeFile(t, "block.json", block)

	out, err := run(t, "reduce", path, "--currency-symbol", markerHex, "--utxos", utxos)
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 2)

	removed, err := crdt.DecodeFeedEvent([]byte(got[0]))
	require.NoError(t, err)
	assert.Equal(t, crdt.OpRemove, removed.Op)
	assert.Equal(t, adaMinKey, removed.Set)
	assert.Equal(t, `{"token_a":"1000","token_b":"2000"}`, removed.Value)

	added, err := crdt.DecodeFeedEvent([]byte(got[1]))
	require.NoError(t, err)
	assert.Equal(t, crdt.OpAdd, added.Op)
	assert.Equal(t, `{"token_a":"1100","token_b":"1820"}`, added.Value)

	_, err = run(t, "reduce", path, "--currency-symbol", markerHex, "--missing", "fail")
	assert.Error(t, err)
}

func TestTip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/query/tip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"height":42,"slot":420,"hash":"` + strings.Repeat("ab", 32) + `"}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("RPC_ENDPOINTS", "")

	out, err := run(t, "tip", "--endpoint", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"height":42`)
	assert.Contains(t, out, `"slot":420`)

	_, err = run(t, "tip")
	assert.Error(t, err)
}

func TestPairs(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("REDIS_KEY_PREFIX", "lx")

	rc, err := redis.New(context.Background(), redis.Config{Addr: mr.Addr(), KeyPrefix: "lx"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	store := crdt.NewRedisStore(rc, nil)
	require.NoError(t, store.Apply(context.Background(), crdt.Point{Height: 1}, []crdt.Command{
		crdt.SetAdd("pools", adaMinKey, `{"dex":"min","token_a":"1000","token_b":"2000"}`),
		crdt.SetAdd("sundae", adaMinKey, `{"fee":0.003,"pool_id":"08","token_a":"5","token_b":"6"}`),
	}))

	out, err := run(t, "pairs")
	require.NoError(t, err)
	assert.Equal(t, []string{"pools." + adaMinKey, "sundae." + adaMinKey}, lines(out))

	out, err = run(t, "pairs", "sundae.*", "--members")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"set":"sundae.`+adaMinKey+`"`)
	assert.Contains(t, got[0], `"pool_id":"08"`)
}
