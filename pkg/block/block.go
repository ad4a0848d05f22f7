// Package block defines block types, the header, the append-only block
// tree, and structural block validation.
package block

import (
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// Block is an immutable unit of ledger state transition.
type Block struct {
	PreviousHash  types.Hash                 `json:"previous_hash"`
	Header        *Header                    `json:"header"`
	Transactions  []*transaction.Transaction `json:"transactions"`
	CoinbaseProof *coinbase.CoinbaseSolution `json:"coinbase_proof,omitempty"`
	Signature     []byte                     `json:"signature,omitempty"`
}

// NewBlock assembles a block from its parts. The caller is responsible for
// signing it afterward (Signature covers Hash(), not Header.Hash() — it
// must bind previous_hash, per I4).
func NewBlock(previousHash types.Hash, header *Header, txs []*transaction.Transaction, proof *coinbase.CoinbaseSolution) *Block {
	return &Block{
		PreviousHash:  previousHash,
		Header:        header,
		Transactions:  txs,
		CoinbaseProof: proof,
	}
}

// Hash returns the block hash: hash_bhp1024(previous_hash || header_root).
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	var buf [64]byte
	copy(buf[:32], b.PreviousHash[:])
	root := b.Header.HeaderRoot()
	copy(buf[32:], root[:])
	return crypto.HashBHP1024(buf[:])
}

// Height returns the block's declared height.
func (b *Block) Height() uint64 {
	if b.Header == nil {
		return 0
	}
	return b.Header.Metadata.Height
}

// Round returns the block's declared consensus round.
func (b *Block) Round() uint64 {
	if b.Header == nil {
		return 0
	}
	return b.Header.Metadata.Round
}

// IsGenesis reports whether this block is the chain's genesis block.
func (b *Block) IsGenesis() bool {
	return b.Height() == 0 && b.PreviousHash.IsZero()
}

// EpochNumber returns the epoch this block's height belongs to.
func (b *Block) EpochNumber(blocksPerEpoch uint64) uint64 {
	if blocksPerEpoch == 0 {
		return 0
	}
	return b.Height() / blocksPerEpoch
}

// TransactionIDs returns the IDs of every transaction in the block.
func (b *Block) TransactionIDs() []types.Hash {
	ids := make([]types.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.ID
	}
	return ids
}

// SerialNumbers returns every serial number spent across the block's transactions.
func (b *Block) SerialNumbers() []types.SerialNumber {
	var out []types.SerialNumber
	for _, tx := range b.Transactions {
		out = append(out, tx.SerialNumbers()...)
	}
	return out
}

// Commitments returns every output commitment produced across the block's transactions.
func (b *Block) Commitments() []types.Commitment {
	var out []types.Commitment
	for _, tx := range b.Transactions {
		out = append(out, tx.Commitments()...)
	}
	return out
}

// OutputIDs returns every output ID produced across the block's transactions.
func (b *Block) OutputIDs() []types.OutputID {
	var out []types.OutputID
	for _, tx := range b.Transactions {
		out = append(out, tx.OutputIDs()...)
	}
	return out
}

// Origins returns the origin of every record input across the block's
// transactions that declares one (§3).
func (b *Block) Origins() []transaction.Origin {
	var out []transaction.Origin
	for _, tx := range b.Transactions {
		out = append(out, tx.Origins()...)
	}
	return out
}

// TransactionsRoot recomputes the Merkle root over the block's transaction IDs.
func (b *Block) TransactionsRoot() types.Hash {
	ids := b.TransactionIDs()
	return ComputeMerkleRoot(ids)
}
