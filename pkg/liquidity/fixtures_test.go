package liquidity

import (
	"testing"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/canopy-network/liquidityx/pkg/plutus"
	"github.com/stretchr/testify/require"
)

const (
	minPolicyHex  = "29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6"
	djedPolicyHex = "8db269c3ec630e06ae29f74bc39edd1f87c819f1056206e879a1cd61"
	sunPolicyHex  = "9a9693a9a37912a5097918f97918d15240c92ab729a0b7c4aa144d77"
	markerHex     = "93744265ed9762d8fa52c4aacacc703aa8c81de9f6d1a59f2299235b"
	otherMarker   = "158fd94afa7ee07055ccdee0ba68637fe0e700d0e58e8d12eca5be46"

	// Pool datums captured from mainnet.
	minswapAdaMinHex  = "d8799fd8799f4040ffd8799f581c29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6434d494eff1b00004ce6fb73282200d87a80ff"
	minswapMinDjedHex = "d8799fd8799f581c29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6434d494effd8799f581c8db269c3ec630e06ae29f74bc39edd1f87c819f1056206e879a1cd614c446a65644d6963726f555344ff1b000000012d9b96321b000000012dc40542d8799fd8799fd8799fd8799f581caafb1196434cb837fd6f21323ca37b302dff6387e8a84b3fa28faf56ffd8799fd8799fd8799f581c52563c5410bff6a0d43ccebb7c37e1f69f5eb260552521adff33b9c2ffffffffd87a80ffffff"
	muesliAdaMinHex   = "d8799fd8799f4040ffd8799f581c29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6434d494eff1a9041264e181eff"
	sundaeAdaSunHex   = "d8799fd8799fd8799f4040ffd8799f581c9a9693a9a37912a5097918f97918d15240c92ab729a0b7c4aa144d774653554e444145ffff41081b0000105a99e0fa59d8799f031903e8ffff"
)

func policy(t testing.TB, h string) ledger.PolicyID {
	t.Helper()
	p, err := ledger.ParsePolicyID(h)
	require.NoError(t, err)
	return p
}

func token(t testing.TB, policyHex, name string) Asset {
	t.Helper()
	return NewToken(policy(t, policyHex), []byte(name))
}

func mustDecode(t testing.TB, h string) plutus.Data {
	t.Helper()
	d, err := plutus.DecodeHex(h)
	require.NoError(t, err)
	return d
}

func assetData(a Asset) plutus.Data {
	if a.IsNative() {
		return plutus.NewConstr(0, plutus.Bytes{}, plutus.Bytes{})
	}
	p := a.Policy()
	return plutus.NewConstr(0, plutus.Bytes(p[:]), plutus.Bytes(a.Name()))
}

func pairData(p TokenPair) plutus.Data {
	return plutus.NewConstr(0, assetData(p.A), assetData(p.B))
}

func minswapDatum(p TokenPair) plutus.Constr {
	return plutus.NewConstr(0, assetData(p.A), assetData(p.B), plutus.NewInt(1000), plutus.NewInt(0), plutus.NewConstr(1))
}

func muesliDatum(p TokenPair) plutus.Constr {
	return plutus.NewConstr(0, assetData(p.A), assetData(p.B), plutus.NewInt(1000), plutus.NewInt(30))
}

func sundaeDatum(p TokenPair, ident []byte, num, den int64) plutus.Constr {
	return plutus.NewConstr(0,
		pairData(p),
		plutus.Bytes(ident),
		plutus.NewInt(5000),
		plutus.NewConstr(0, plutus.NewInt(num), plutus.NewInt(den)),
	)
}

func wingridersDatum(p TokenPair) plutus.Constr {
	return plutus.NewConstr(0,
		plutus.Bytes(make([]byte, 28)),
		plutus.NewConstr(0, pairData(p), plutus.NewInt(1700000000000), plutus.NewInt(0), plutus.NewInt(0)),
	)
}

// withoutField drops field i of the outermost constructor.
func withoutField(c plutus.Constr, i int) plutus.Constr {
	fields := make([]plutus.Data, 0, len(c.Fields)-1)
	fields = append(fields, c.Fields[:i]...)
	fields = append(fields, c.Fields[i+1:]...)
	return plutus.Constr{Alt: c.Alt, Fields: fields}
}

func inlineDatum(t testing.TB, d plutus.Data) *ledger.Datum {
	t.Helper()
	raw, err := plutus.Encode(d)
	require.NoError(t, err)
	return &ledger.Datum{Inline: raw}
}
