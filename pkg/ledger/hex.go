package ledger

import (
	"encoding/hex"
	"fmt"
)

const (
	PolicyIDSize = 28
	HashSize     = 32
)

// HexBytes is a byte slice carried as lowercase hex in JSON.
type HexBytes []byte

func (h HexBytes) String() string { return hex.EncodeToString(h) }

func (h HexBytes) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HexBytes) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*h = raw
	return nil
}

// PolicyID identifies a minting policy (currency symbol).
type PolicyID [PolicyIDSize]byte

func ParsePolicyID(s string) (PolicyID, error) {
	var p PolicyID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("invalid policy id %q: %w", s, err)
	}
	if len(raw) != PolicyIDSize {
		return p, fmt.Errorf("invalid policy id %q: want %d bytes, got %d", s, PolicyIDSize, len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

func (p PolicyID) String() string { return hex.EncodeToString(p[:]) }

func (p PolicyID) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PolicyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicyID(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Hash is a 32 byte blake2b digest (transaction or block id).
type Hash [HashSize]byte

func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
