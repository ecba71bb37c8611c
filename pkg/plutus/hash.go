package plutus

import (
	"encoding/hex"

	"github.com/canopy-network/liquidityx/pkg/utils"
)

// DatumHash is the blake2b-256 digest of the datum's original CBOR bytes.
// Re-encoding a decoded tree may not reproduce the same bytes, so callers
// must hash what was on chain.
type DatumHash [32]byte

func HashDatum(raw []byte) DatumHash {
	return DatumHash(utils.Blake2b256(raw))
}

func (h DatumHash) String() string { return hex.EncodeToString(h[:]) }

func (h DatumHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *DatumHash) UnmarshalText(b []byte) error {
	return ParseDatumHash(string(b), h)
}

// ParseDatumHash decodes a 64 character hex digest into h.
func ParseDatumHash(s string, h *DatumHash) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(h) {
		return ErrMalformed
	}
	copy(h[:], raw)
	return nil
}
