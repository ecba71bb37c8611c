package ledger

import "bytes"

// NativeAsset is one multi-asset entry of an output value.
type NativeAsset struct {
	Policy   PolicyID `json:"policy_id"`
	Name     HexBytes `json:"name"`
	Quantity uint64   `json:"quantity"`
}

// Value is the amount held by an output. Coin is always present.
type Value struct {
	Coin   uint64        `json:"coin"`
	Assets []NativeAsset `json:"assets,omitempty"`
}

// HasPolicy reports whether any asset was minted under policy.
func (v Value) HasPolicy(policy PolicyID) bool {
	for _, a := range v.Assets {
		if a.Policy == policy {
			return true
		}
	}
	return false
}

// Quantity returns the amount of (policy, name), matching the name byte for byte.
func (v Value) Quantity(policy PolicyID, name []byte) (uint64, bool) {
	for _, a := range v.Assets {
		if a.Policy == policy && bytes.Equal(a.Name, name) {
			return a.Quantity, true
		}
	}
	return 0, false
}
