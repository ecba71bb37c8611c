package liquidity

import (
	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/plutus"
)

// ResolveDatum returns the Plutus data attached to out. Hash references are
// looked up in the witness datums of tx. ok is false when there is no datum,
// the hash has no witness, or the bytes are not valid Plutus data.
func ResolveDatum(out ledger.Output, tx ledger.Tx) (plutus.Data, bool) {
	if out.Datum == nil {
		return nil, false
	}

	raw := []byte(out.Datum.Inline)
	if len(raw) == 0 {
		if out.Datum.Hash == nil {
			return nil, false
		}
		witness, ok := tx.WitnessDatum(*out.Datum.Hash)
		if !ok {
			return nil, false
		}
		raw = witness
	}

	d, err := plutus.Decode(raw)
	if err != nil {
		return nil, false
	}
	return d, true
}
