package ledger

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/canopy-network/liquidityx/pkg/plutus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minPolicy = "29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6"

func mustHash(t *testing.T, b byte) Hash {
	t.Helper()
	h, err := ParseHash(strings.Repeat(hex.EncodeToString([]byte{b}), HashSize))
	require.NoError(t, err)
	return h
}

func TestParsePolicyID(t *testing.T) {
	p, err := ParsePolicyID(minPolicy)
	require.NoError(t, err)
	assert.Equal(t, minPolicy, p.String())

	_, err = ParsePolicyID("abcd")
	assert.Error(t, err)
	_, err = ParsePolicyID("zz")
	assert.Error(t, err)
}

func TestOutputRefText(t *testing.T) {
	ref := OutputRef{TxHash: mustHash(t, 0xab), Index: 3}
	s := ref.String()
	assert.True(t, strings.HasSuffix(s, "#3"))

	parsed, err := ParseOutputRef(s)
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)

	for _, bad := range []string{"nohash", "ab#1", ref.TxHash.String() + "#x"} {
		_, err := ParseOutputRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestValueLookups(t *testing.T) {
	policy, err := ParsePolicyID(minPolicy)
	require.NoError(t, err)
	other := policy
	other[0] ^= 0xff

	v := Value{Coin: 10, Assets: []NativeAsset{{Policy: policy, Name: HexBytes("MIN"), Quantity: 7}}}

	assert.True(t, v.HasPolicy(policy))
	assert.False(t, v.HasPolicy(other))

	q, ok := v.Quantity(policy, []byte("MIN"))
	require.True(t, ok)
	assert.Equal(t, uint64(7), q)

	_, ok = v.Quantity(policy, []byte("min"))
	assert.False(t, ok)
}

func TestConsumesProducesValidTx(t *testing.T) {
	tx := Tx{
		Hash:             mustHash(t, 1),
		Valid:            true,
		Inputs:           []OutputRef{{TxHash: mustHash(t, 2), Index: 0}},
		CollateralInputs: []OutputRef{{TxHash: mustHash(t, 3), Index: 1}},
		Outputs:          []Output{{Address: "addr1"}, {Address: "addr2"}},
		CollateralReturn: &Output{Address: "collateral"},
	}

	assert.Equal(t, tx.Inputs, tx.Consumes())
	produced := tx.Produces()
	require.Len(t, produced, 2)
	assert.Equal(t, uint32(1), produced[1].Ref.Index)
	assert.Equal(t, "addr2", produced[1].Output.Address)
	assert.Equal(t, tx.Hash, produced[1].Ref.TxHash)
}

func TestConsumesProducesInvalidTx(t *testing.T) {
	tx := Tx{
		Hash:             mustHash(t, 1),
		Valid:            false,
		Inputs:           []OutputRef{{TxHash: mustHash(t, 2), Index: 0}},
		CollateralInputs: []OutputRef{{TxHash: mustHash(t, 3), Index: 1}},
		Outputs:          []Output{{Address: "addr1"}, {Address: "addr2"}},
		CollateralReturn: &Output{Address: "collateral"},
	}

	assert.Equal(t, tx.CollateralInputs, tx.Consumes())
	produced := tx.Produces()
	require.Len(t, produced, 1)
	assert.Equal(t, uint32(2), produced[0].Ref.Index)
	assert.Equal(t, "collateral", produced[0].Output.Address)

	tx.CollateralReturn = nil
	assert.Empty(t, tx.Produces())
}

func TestWitnessDatum(t *testing.T) {
	raw, err := hex.DecodeString("d87980")
	require.NoError(t, err)
	tx := Tx{PlutusData: []HexBytes{{0x01}, raw}}

	got, ok := tx.WitnessDatum(plutus.HashDatum(raw))
	require.True(t, ok)
	assert.Equal(t, raw, got)

	_, ok = tx.WitnessDatum(plutus.HashDatum([]byte{0x02}))
	assert.False(t, ok)
}

func TestBlockJSON(t *testing.T) {
	doc := `{
	  "slot": 100, "height": 7,
	  "hash": "` + strings.Repeat("aa", 32) + `",
	  "prev_hash": "` + strings.Repeat("bb", 32) + `",
	  "txs": [{
	    "hash": "` + strings.Repeat("cc", 32) + `",
	    "valid": true,
	    "inputs": ["` + strings.Repeat("dd", 32) + `#2"],
	    "outputs": [{
	      "address": "addr1",
	      "value": {"coin": 5, "assets": [{"policy_id": "` + minPolicy + `", "name": "4d494e", "quantity": 9}]},
	      "datum": {"inline": "d87980"}
	    }],
	    "plutus_data": ["d87a80"]
	  }]
	}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(doc), &b))
	require.Len(t, b.Txs, 1)
	tx := b.Txs[0]
	assert.Equal(t, uint32(2), tx.Inputs[0].Index)
	assert.Equal(t, HexBytes{0xd8, 0x79, 0x80}, tx.Outputs[0].Datum.Inline)
	assert.Nil(t, tx.Outputs[0].Datum.Hash)
	q, ok := tx.Outputs[0].Value.Quantity(tx.Outputs[0].Value.Assets[0].Policy, []byte("MIN"))
	require.True(t, ok)
	assert.Equal(t, uint64(9), q)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	var again Block
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, b, again)
}
