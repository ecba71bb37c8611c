package liquidity

import "github.com/canopy-network/liquidityx/pkg/ledger"

// Reserve is a pooled quantity that may be missing from an output.
type Reserve struct {
	Amount  uint64
	Present bool
}

func Held(amount uint64) Reserve { return Reserve{Amount: amount, Present: true} }

// ReserveOf returns how much of asset the output value holds. The native coin
// is always present; tokens match on policy and exact name bytes.
func ReserveOf(asset Asset, v ledger.Value) Reserve {
	if asset.IsNative() {
		return Held(v.Coin)
	}
	q, ok := v.Quantity(asset.Policy(), asset.Name())
	if !ok {
		return Reserve{}
	}
	return Held(q)
}
