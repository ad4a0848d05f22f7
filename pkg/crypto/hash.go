// Package crypto provides cryptographic primitives for Klingnet.
package crypto

import (
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// HashBHP1024 stands in for the Bowe-Hopwood-Pedersen hash over a window of
// up to 1024 bits used by the reference ledger for block tree nodes and
// state commitments. BHP is a dedicated elliptic-curve hash chosen there for
// its algebraic structure inside zk circuits; outside of a circuit it has no
// advantage over a fast tree hash, so this uses BLAKE3 domain-separated by a
// "bhp1024" tag. Input of any length is accepted.
func HashBHP1024(data []byte) types.Hash {
	const domain = "bhp1024"
	buf := make([]byte, 0, len(domain)+len(data))
	buf = append(buf, domain...)
	buf = append(buf, data...)
	return Hash(buf)
}
