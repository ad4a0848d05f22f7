package block

import (
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ComputeMerkleRoot calculates the merkle root of transaction hashes.
//
// Algorithm:
//   - 0 hashes: returns zero hash
//   - 1 hash: returns that hash
//   - Otherwise: pairwise hash, duplicating the last element if odd count,
//     then recurse on the resulting layer until one hash remains.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}
	if len(txHashes) == 1 {
		return txHashes[0]
	}

	// Work on a copy so we don't mutate the caller's slice.
	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		// If odd, duplicate the last element.
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}

// MerklePath returns the sibling hashes from leaf index up to (but not
// including) the root, following the same pairwise/duplicate-last
// construction as ComputeMerkleRoot. Verifiers recompute the root by
// repeatedly hashing the running value with each sibling in order.
func MerklePath(leaves []types.Hash, index int) [][]byte {
	if len(leaves) == 0 || index < 0 || index >= len(leaves) {
		return nil
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)
	pos := index

	var path [][]byte
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		siblingIndex := pos ^ 1
		sibling := level[siblingIndex]
		path = append(path, append([]byte(nil), sibling[:]...))

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
		pos /= 2
	}

	return path
}

// VerifyMerklePath recomputes the root from a leaf and its path, in the same
// left-right order MerklePath was built in (leaf is always the "left" side
// unless its index was odd at that level; since the caller already knows
// which side the sibling was on is unnecessary here because HashConcat is
// only used by ComputeMerkleRoot with a fixed left-to-right walk, this
// recomputation assumes the leaf's own index parity at each level, which the
// caller supplies via index).
func VerifyMerklePath(leaf types.Hash, index int, path [][]byte, root types.Hash) bool {
	cur := leaf
	pos := index
	for _, sib := range path {
		var s types.Hash
		copy(s[:], sib)
		if pos%2 == 0 {
			cur = crypto.HashConcat(cur, s)
		} else {
			cur = crypto.HashConcat(s, cur)
		}
		pos /= 2
	}
	return cur == root
}
