package liquidity

import (
	"math"
	"strconv"

	"github.com/go-jose/go-jose/v4/json"
)

// PoolValue is the member stored under a pair key. Field order is the wire order.
type PoolValue struct {
	Dex    *string  `json:"dex,omitempty"`
	Fee    *float64 `json:"fee,omitempty"`
	PoolID *string  `json:"pool_id,omitempty"`
	TokenA string   `json:"token_a"`
	TokenB string   `json:"token_b"`
}

// ParsePoolValue decodes a stored member.
func ParsePoolValue(s string) (PoolValue, error) {
	var v PoolValue
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

// Reserves returns token_a and token_b as integers.
func (v PoolValue) Reserves() (uint64, uint64, error) {
	a, err := strconv.ParseUint(v.TokenA, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseUint(v.TokenB, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// BuildKeyValue renders the pair key and the serialized pool value. Reserves
// are given in the pair's declared order and are swapped along with the
// assets when canonical order differs. An empty dex label is omitted.
func BuildKeyValue(pair TokenPair, dex string, a, b Reserve, fee *float64, poolID *string) (string, string, bool) {
	if !a.Present || !b.Present {
		return "", "", false
	}
	key, ok := pair.Key()
	if !ok {
		return "", "", false
	}
	if _, swapped, _ := pair.Canonical(); swapped {
		a, b = b, a
	}

	v := PoolValue{
		TokenA: strconv.FormatUint(a.Amount, 10),
		TokenB: strconv.FormatUint(b.Amount, 10),
		PoolID: poolID,
	}
	if dex != "" {
		v.Dex = &dex
	}
	if fee != nil && !math.IsNaN(*fee) && !math.IsInf(*fee, 0) {
		f := *fee
		v.Fee = &f
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", "", false
	}
	return key, string(raw), true
}
