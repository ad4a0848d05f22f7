package block

import (
	"errors"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// TreeDepth is the fixed depth of the ledger's block tree (2^32 leaves).
const TreeDepth = 32

// ErrTreeFull is returned when appending past the tree's leaf capacity.
var ErrTreeFull = errors.New("block: block tree is full")

// ErrTreeHeightRange is returned by ProveHeight for a height with no leaf yet.
var ErrTreeHeightRange = errors.New("block: height has no block tree leaf")

// Tree is an append-only, fixed-depth Merkle tree over block hashes. It
// produces the ledger's state root and membership proofs keyed by height,
// hashed with HashBHP1024 in place of the reference BHP window hash (see
// crypto.HashBHP1024).
type Tree struct {
	leaves []types.Hash
}

// NewTree returns an empty block tree.
func NewTree() *Tree {
	return &Tree{}
}

// Append adds a block hash as the next leaf. Leaves are ordered by height:
// the i-th append corresponds to the block at height i.
func (t *Tree) Append(blockHash types.Hash) error {
	if uint64(len(t.leaves)) >= (uint64(1) << TreeDepth) {
		return ErrTreeFull
	}
	t.leaves = append(t.leaves, blockHash)
	return nil
}

// Len returns the number of leaves committed so far.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Root returns the current BHP Merkle root over every committed leaf.
func (t *Tree) Root() types.Hash {
	return bhpRoot(t.leaves)
}

// Prove returns the Merkle path for the block hash at the given height.
func (t *Tree) Prove(height uint64) ([][]byte, error) {
	if height >= uint64(len(t.leaves)) {
		return nil, ErrTreeHeightRange
	}
	return bhpPath(t.leaves, int(height)), nil
}

// Clone returns a deep copy of the tree. The ledger's append path does not
// use it; it appends to its tree in place.
func (t *Tree) Clone() *Tree {
	clone := &Tree{leaves: make([]types.Hash, len(t.leaves))}
	copy(clone.leaves, t.leaves)
	return clone
}

// bhpRoot and bhpPath reuse the pairwise concat-hash construction from
// merkle.go, swapping in HashBHP1024 as the combining function in place of
// HashConcat so block-tree nodes are distinguished from transaction roots.
func bhpRoot(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.Hash{}
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = bhpConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}

func bhpPath(leaves []types.Hash, index int) [][]byte {
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
		sib := level[pos^1]
		path = append(path, append([]byte(nil), sib[:]...))

		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = bhpConcat(level[i], level[i+1])
		}
		level = next
		pos /= 2
	}
	return path
}

// VerifyTreePath recomputes the block tree root from a block hash and its
// path (as returned by Tree.Prove) and reports whether it matches root.
func VerifyTreePath(leaf types.Hash, index int, path [][]byte, root types.Hash) bool {
	cur := leaf
	pos := index
	for _, sib := range path {
		var s types.Hash
		copy(s[:], sib)
		if pos%2 == 0 {
			cur = bhpConcat(cur, s)
		} else {
			cur = bhpConcat(s, cur)
		}
		pos /= 2
	}
	return cur == root
}

func bhpConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return crypto.HashBHP1024(buf[:])
}
