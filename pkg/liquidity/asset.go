package liquidity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/canopy-network/liquidityx/pkg/ledger"
)

// Asset is either the native coin or a token issued under a minting policy.
// The zero value is the native coin. Assets are comparable with ==.
type Asset struct {
	issued bool
	policy ledger.PolicyID
	name   string
}

func NativeAsset() Asset { return Asset{} }

// NewToken builds an issued asset. The name is arbitrary binary, up to 32 bytes on chain.
func NewToken(policy ledger.PolicyID, name []byte) Asset {
	return Asset{issued: true, policy: policy, name: string(name)}
}

// ParseAsset reads the hex policy and hex name form; both empty means the native coin.
func ParseAsset(policyHex, nameHex string) (Asset, error) {
	if policyHex == "" && nameHex == "" {
		return NativeAsset(), nil
	}
	policy, err := ledger.ParsePolicyID(policyHex)
	if err != nil {
		return Asset{}, err
	}
	name, err := hex.DecodeString(nameHex)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset name %q: %w", nameHex, err)
	}
	return NewToken(policy, name), nil
}

// ParseAssetID is the inverse of ID.
func ParseAssetID(id string) (Asset, error) {
	policyHex, nameHex, ok := strings.Cut(id, ".")
	if !ok {
		return Asset{}, fmt.Errorf("invalid asset id %q", id)
	}
	return ParseAsset(policyHex, nameHex)
}

func (a Asset) IsNative() bool { return !a.issued }

func (a Asset) Policy() ledger.PolicyID { return a.policy }

func (a Asset) Name() []byte { return []byte(a.name) }

// ID renders "<policyhex>.<namehex>"; the native coin renders as ".".
func (a Asset) ID() string {
	if !a.issued {
		return "."
	}
	return a.policy.String() + "." + hex.EncodeToString([]byte(a.name))
}

func (a Asset) String() string {
	if !a.issued {
		return "ada"
	}
	return a.ID()
}

// Compare orders the native coin before every token, and tokens by ID.
func (a Asset) Compare(b Asset) int {
	switch {
	case a.issued == b.issued && !a.issued:
		return 0
	case !a.issued:
		return -1
	case !b.issued:
		return 1
	}
	return strings.Compare(a.ID(), b.ID())
}
