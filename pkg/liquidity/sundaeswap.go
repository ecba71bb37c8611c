package liquidity

import (
	"encoding/hex"

	"github.com/canopy-network/liquidityx/pkg/plutus"
)

// Constr 0 [Constr 0 [assetA, assetB], Bytes poolIdent, Int circulatingLP, Constr 0 [Int num, Int den]]
//
// Fee terms must fit in 32 bits.
func decodeSundaeSwap(d plutus.Data) (PoolDatum, bool) {
	c, ok := plutus.AsConstr(d, 0, 4)
	if !ok {
		return PoolDatum{}, false
	}
	pair, ok := decodePairRecord(c.Fields[0])
	if !ok {
		return PoolDatum{}, false
	}
	ident, ok := plutus.AsBytes(c.Fields[1])
	if !ok || !isInt(c.Fields[2]) {
		return PoolDatum{}, false
	}
	feeRec, ok := plutus.AsConstr(c.Fields[3], 0, 2)
	if !ok {
		return PoolDatum{}, false
	}
	num, ok := int32Of(feeRec.Fields[0])
	if !ok {
		return PoolDatum{}, false
	}
	den, ok := int32Of(feeRec.Fields[1])
	if !ok {
		return PoolDatum{}, false
	}

	poolID := hex.EncodeToString(ident)
	return PoolDatum{
		Protocol: ProtocolSundaeSwap,
		Pair:     pair,
		Fee:      &Fee{Num: num, Den: den},
		PoolID:   &poolID,
	}, true
}
