package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/canopy-network/liquidityx/pkg/plutus"
)

// OutputRef points at an output by producing transaction and index.
type OutputRef struct {
	TxHash Hash   `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

func (r OutputRef) String() string {
	return r.TxHash.String() + "#" + strconv.FormatUint(uint64(r.Index), 10)
}

// ParseOutputRef parses the "<txhash>#<index>" form.
func ParseOutputRef(s string) (OutputRef, error) {
	hash, idx, ok := strings.Cut(s, "#")
	if !ok {
		return OutputRef{}, fmt.Errorf("invalid output ref %q", s)
	}
	h, err := ParseHash(hash)
	if err != nil {
		return OutputRef{}, err
	}
	n, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return OutputRef{}, fmt.Errorf("invalid output ref index %q: %w", s, err)
	}
	return OutputRef{TxHash: h, Index: uint32(n)}, nil
}

func (r OutputRef) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *OutputRef) UnmarshalText(b []byte) error {
	parsed, err := ParseOutputRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Datum is attached to an output either by hash or inline. At most one is set.
type Datum struct {
	Hash   *plutus.DatumHash `json:"hash,omitempty"`
	Inline HexBytes          `json:"inline,omitempty"`
}

type Output struct {
	Address string `json:"address"`
	Value   Value  `json:"value"`
	Datum   *Datum `json:"datum,omitempty"`
}

// Produced is an output together with the reference later used to spend it.
type Produced struct {
	Ref    OutputRef
	Output Output
}

// Tx carries the parts of a transaction the reducers care about. Valid is
// false for transactions that failed script validation; those only consume
// collateral and only produce the collateral return.
type Tx struct {
	Hash             Hash        `json:"hash"`
	Valid            bool        `json:"valid"`
	Inputs           []OutputRef `json:"inputs"`
	CollateralInputs []OutputRef `json:"collateral_inputs,omitempty"`
	Outputs          []Output    `json:"outputs"`
	CollateralReturn *Output     `json:"collateral_return,omitempty"`
	PlutusData       []HexBytes  `json:"plutus_data,omitempty"`
}

// Consumes lists the outputs this transaction spends.
func (tx Tx) Consumes() []OutputRef {
	if tx.Valid {
		return tx.Inputs
	}
	return tx.CollateralInputs
}

// Produces lists the outputs this transaction creates, in index order.
// The collateral return of an invalid transaction takes the index right
// after the regular outputs.
func (tx Tx) Produces() []Produced {
	if !tx.Valid {
		if tx.CollateralReturn == nil {
			return nil
		}
		return []Produced{{
			Ref:    OutputRef{TxHash: tx.Hash, Index: uint32(len(tx.Outputs))},
			Output: *tx.CollateralReturn,
		}}
	}
	out := make([]Produced, len(tx.Outputs))
	for i, o := range tx.Outputs {
		out[i] = Produced{Ref: OutputRef{TxHash: tx.Hash, Index: uint32(i)}, Output: o}
	}
	return out
}

// WitnessDatum returns the witness-set datum whose hash is h.
func (tx Tx) WitnessDatum(h plutus.DatumHash) ([]byte, bool) {
	for _, raw := range tx.PlutusData {
		if plutus.HashDatum(raw) == h {
			return raw, true
		}
	}
	return nil, false
}

type Block struct {
	Slot     uint64 `json:"slot"`
	Height   uint64 `json:"height"`
	Hash     Hash   `json:"hash"`
	PrevHash Hash   `json:"prev_hash"`
	Txs      []Tx   `json:"txs"`
}
