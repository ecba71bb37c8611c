package liquidity

import (
	"math"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/plutus"
)

// Protocol names the DEX family whose datum layout matched.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	ProtocolMinswap
	ProtocolSundaeSwap
	ProtocolWingRiders
	ProtocolMuesliSwap
)

func (p Protocol) String() string {
	switch p {
	case ProtocolMinswap:
		return "minswap"
	case ProtocolSundaeSwap:
		return "sundaeswap"
	case ProtocolWingRiders:
		return "wingriders"
	case ProtocolMuesliSwap:
		return "muesliswap"
	}
	return "unknown"
}

// Fee is a swap fee as a fraction.
type Fee struct {
	Num int32
	Den int32
}

// Float is Num/Den; a zero denominator gives a non finite result.
func (f Fee) Float() float64 {
	return float64(f.Num) / float64(f.Den)
}

// PoolDatum is the normalized state of one pool. Fee and PoolID are only set
// by protocols that carry them.
type PoolDatum struct {
	Protocol Protocol
	Pair     TokenPair
	Fee      *Fee
	PoolID   *string
}

type datumDecoder func(plutus.Data) (PoolDatum, bool)

// Tried in this order; layouts are disjoint so the order only matters for cost.
var decoders = []struct {
	protocol Protocol
	decode   datumDecoder
}{
	{ProtocolMinswap, decodeMinswap},
	{ProtocolSundaeSwap, decodeSundaeSwap},
	{ProtocolWingRiders, decodeWingRiders},
	{ProtocolMuesliSwap, decodeMuesliSwap},
}

// DecodePoolDatum returns the first protocol layout d matches.
func DecodePoolDatum(d plutus.Data) (PoolDatum, bool) {
	for _, dec := range decoders {
		if pd, ok := dec.decode(d); ok {
			return pd, true
		}
	}
	return PoolDatum{}, false
}

// DecodeAs forces a single protocol layout.
func DecodeAs(p Protocol, d plutus.Data) (PoolDatum, bool) {
	for _, dec := range decoders {
		if dec.protocol == p {
			return dec.decode(d)
		}
	}
	return PoolDatum{}, false
}

// decodeAsset reads Constr 0 [Bytes policy, Bytes name]. Two empty byte
// strings are the native coin.
func decodeAsset(d plutus.Data) (Asset, bool) {
	c, ok := plutus.AsConstr(d, 0, 2)
	if !ok {
		return Asset{}, false
	}
	policy, ok := plutus.AsBytes(c.Fields[0])
	if !ok {
		return Asset{}, false
	}
	name, ok := plutus.AsBytes(c.Fields[1])
	if !ok {
		return Asset{}, false
	}
	if len(policy) == 0 && len(name) == 0 {
		return NativeAsset(), true
	}
	if len(policy) != ledger.PolicyIDSize {
		return Asset{}, false
	}
	var p ledger.PolicyID
	copy(p[:], policy)
	return NewToken(p, name), true
}

func decodeAssets(a, b plutus.Data) (TokenPair, bool) {
	x, ok := decodeAsset(a)
	if !ok {
		return TokenPair{}, false
	}
	y, ok := decodeAsset(b)
	if !ok {
		return TokenPair{}, false
	}
	return TokenPair{A: x, B: y}, true
}

// decodePairRecord reads Constr 0 [asset, asset].
func decodePairRecord(d plutus.Data) (TokenPair, bool) {
	c, ok := plutus.AsConstr(d, 0, 2)
	if !ok {
		return TokenPair{}, false
	}
	return decodeAssets(c.Fields[0], c.Fields[1])
}

func isInt(d plutus.Data) bool {
	_, ok := plutus.AsInt(d)
	return ok
}

func int32Of(d plutus.Data) (int32, bool) {
	i, ok := plutus.AsInt(d)
	if !ok {
		return 0, false
	}
	v, ok := i.Int64()
	if !ok || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}
