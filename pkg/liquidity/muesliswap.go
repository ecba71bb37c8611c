package liquidity

import "github.com/canopy-network/liquidityx/pkg/plutus"

// Constr 0 [assetA, assetB, Int totalLiquidity, Int lpFee]
func decodeMuesliSwap(d plutus.Data) (PoolDatum, bool) {
	c, ok := plutus.AsConstr(d, 0, 4)
	if !ok {
		return PoolDatum{}, false
	}
	pair, ok := decodeAssets(c.Fields[0], c.Fields[1])
	if !ok || !isInt(c.Fields[2]) || !isInt(c.Fields[3]) {
		return PoolDatum{}, false
	}
	return PoolDatum{Protocol: ProtocolMuesliSwap, Pair: pair}, true
}
