package block

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ErrHeaderLeafRange is returned by HeaderLeaf for an out-of-range index.
var ErrHeaderLeafRange = errors.New("block: header leaf index out of range")

// Metadata carries the header fields that change every block: network
// identity, consensus round/height, the two coinbase-puzzle targets, and
// the proposal timestamp.
type Metadata struct {
	NetworkID      uint16 `json:"network_id"`
	Round          uint64 `json:"round"`
	Height         uint64 `json:"height"`
	CoinbaseTarget uint64 `json:"coinbase_target"`
	ProofTarget    uint64 `json:"proof_target"`
	Timestamp      int64  `json:"timestamp"`
}

// Header contains block metadata plus the three Merkle roots the ledger
// commits to: the state root (block tree root as of the previous block),
// the transactions root, and the coinbase accumulator point.
type Header struct {
	StateRoot                types.Hash       `json:"state_root"`
	TransactionsRoot         types.Hash       `json:"transactions_root"`
	CoinbaseAccumulatorPoint types.Field      `json:"coinbase_accumulator_point"`
	Metadata                 Metadata         `json:"metadata"`
}

// headerJSON mirrors Header for JSON purposes; kept separate so the binary
// SigningBytes layout can diverge from the JSON layout without surprise.
type headerJSON = Header

// MarshalJSON encodes the header.
func (h *Header) MarshalJSON() ([]byte, error) {
	return json.Marshal((*headerJSON)(h))
}

// UnmarshalJSON decodes a header.
func (h *Header) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, (*headerJSON)(h))
}

// Hash computes a BHP-style hash over the header's SigningBytes. It is not
// the header root: HeaderRoot is the Merkle root over the header's eight
// leaves (0..7), and it is HeaderRoot that Block.Hash binds.
func (h *Header) Hash() types.Hash {
	return crypto.HashBHP1024(h.SigningBytes())
}

// SigningBytes returns the canonical byte encoding used both for the header
// root hash and for the block signature.
//
// Format: state_root(32) | transactions_root(32) | coinbase_accumulator_point(32)
//
//	| network_id(2) | round(8) | height(8) | coinbase_target(8) | proof_target(8) | timestamp(8)
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 138)
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.TransactionsRoot[:]...)
	buf = append(buf, h.CoinbaseAccumulatorPoint[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, h.Metadata.NetworkID)
	buf = binary.LittleEndian.AppendUint64(buf, h.Metadata.Round)
	buf = binary.LittleEndian.AppendUint64(buf, h.Metadata.Height)
	buf = binary.LittleEndian.AppendUint64(buf, h.Metadata.CoinbaseTarget)
	buf = binary.LittleEndian.AppendUint64(buf, h.Metadata.ProofTarget)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Metadata.Timestamp))
	return buf
}

// leaves returns the header's eight Merkle leaves in fixed order, used for
// Merkle-path proofs over individual header fields (§4.5 header leaf with
// index=1 is the transactions root).
func (h *Header) leaves() [8]types.Hash {
	var l [8]types.Hash
	l[0] = h.StateRoot
	l[1] = h.TransactionsRoot
	l[2] = types.Hash(h.CoinbaseAccumulatorPoint)
	l[3] = crypto.Hash(h.SigningBytes()[96:104])
	l[4] = crypto.Hash(h.SigningBytes()[104:112])
	l[5] = crypto.Hash(h.SigningBytes()[112:120])
	l[6] = crypto.Hash(h.SigningBytes()[120:128])
	l[7] = crypto.Hash(h.SigningBytes()[128:138])
	return l
}

// HeaderLeaf returns the value and Merkle path for the header leaf at the
// given index, rooting to HeaderRoot().
func (h *Header) HeaderLeaf(index int) (types.Hash, [][]byte, error) {
	leaves := h.leaves()
	if index < 0 || index >= len(leaves) {
		return types.Hash{}, nil, ErrHeaderLeafRange
	}
	path := MerklePath(leaves[:], index)
	return leaves[index], path, nil
}

// HeaderRoot returns the Merkle root over the header's eight leaves.
func (h *Header) HeaderRoot() types.Hash {
	leaves := h.leaves()
	return ComputeMerkleRoot(leaves[:])
}
