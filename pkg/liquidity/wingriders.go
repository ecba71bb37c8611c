package liquidity

import "github.com/canopy-network/liquidityx/pkg/plutus"

// Constr 0 [Bytes requestScriptHash, Constr 0 [Constr 0 [assetA, assetB], Int lastInteraction, Int treasuryA, Int treasuryB]]
func decodeWingRiders(d plutus.Data) (PoolDatum, bool) {
	c, ok := plutus.AsConstr(d, 0, 2)
	if !ok {
		return PoolDatum{}, false
	}
	if _, ok := plutus.AsBytes(c.Fields[0]); !ok {
		return PoolDatum{}, false
	}
	state, ok := plutus.AsConstr(c.Fields[1], 0, 4)
	if !ok {
		return PoolDatum{}, false
	}
	pair, ok := decodePairRecord(state.Fields[0])
	if !ok {
		return PoolDatum{}, false
	}
	for _, f := range state.Fields[1:] {
		if !isInt(f) {
			return PoolDatum{}, false
		}
	}
	return PoolDatum{Protocol: ProtocolWingRiders, Pair: pair}, true
}
