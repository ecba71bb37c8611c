package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Blake2b256 is the digest used for ledger datum and transaction hashes.
func Blake2b256(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

// Blake2b256Hex returns the lowercase hex form of Blake2b256.
func Blake2b256Hex(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
