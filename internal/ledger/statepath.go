package ledger

import (
	"fmt"

	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// StatePath proves that a single output commitment is included in the
// current ledger state, by chaining five Merkle proofs (§4.5): the
// transition's own commitment leaf, the transaction's transition leaf, the
// transactions-root leaf for the transaction's index within its block, the
// header leaf for that transactions root, and the block tree leaf at the
// block's height.
type StatePath struct {
	Commitment types.Commitment

	TransitionID   types.Hash
	TransitionPath [][]byte

	TransactionID   types.Hash
	TransactionPath [][]byte

	// TransactionsPath locates TransactionID within the block's
	// TransactionIDs(), rooting at TransactionsRoot (the header's leaf 1).
	TransactionsPath [][]byte

	HeaderLeaf [][]byte

	BlockHash   types.Hash
	BlockHeight uint64
	BlockPath   [][]byte

	StateRoot types.Hash
}

// ToStatePath builds the inclusion proof for commitment against the
// current ledger state. Every lookup step is fail-fast: the first missing
// link returns a descriptive ErrMissing-wrapped error (§4.5: "fail with a
// descriptive error if any lookup is missing").
func (l *Ledger) ToStatePath(commitment types.Commitment) (*StatePath, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	transitionID, err := l.transitions.FindTransitionID(commitment)
	if err != nil {
		return nil, fmt.Errorf("state path: commitment %s: %w", commitment, err)
	}
	transition, err := l.transitions.GetTransition(transitionID)
	if err != nil {
		return nil, fmt.Errorf("state path: transition %s: %w", transitionID, err)
	}
	transitionPath, err := transitionCommitmentPath(transition, commitment)
	if err != nil {
		return nil, fmt.Errorf("state path: %w", err)
	}

	txID, err := l.transactions.FindTransactionID(transitionID)
	if err != nil {
		return nil, fmt.Errorf("state path: transition %s: %w", transitionID, err)
	}
	tx, err := l.transactions.GetTransaction(txID)
	if err != nil {
		return nil, fmt.Errorf("state path: transaction %s: %w", txID, err)
	}
	transactionPath, err := transitionIDPath(tx, transitionID)
	if err != nil {
		return nil, fmt.Errorf("state path: %w", err)
	}

	blockHash, err := l.blocks.FindBlockHash(txID)
	if err != nil {
		return nil, fmt.Errorf("state path: transaction %s: %w", txID, err)
	}
	blk, err := l.blocks.GetBlock(blockHash)
	if err != nil {
		return nil, fmt.Errorf("state path: block %s: %w", blockHash, err)
	}
	transactionsPath, err := transactionIDPath(blk, txID)
	if err != nil {
		return nil, fmt.Errorf("state path: %w", err)
	}

	_, headerPath, err := blk.Header.HeaderLeaf(1) // index 1: transactions_root
	if err != nil {
		return nil, fmt.Errorf("state path: header leaf: %w", err)
	}

	blockPath, err := l.tree.Prove(blk.Height())
	if err != nil {
		return nil, fmt.Errorf("state path: block tree leaf at height %d: %w", blk.Height(), err)
	}

	return &StatePath{
		Commitment:       commitment,
		TransitionID:     transitionID,
		TransitionPath:   transitionPath,
		TransactionID:    txID,
		TransactionPath:  transactionPath,
		TransactionsPath: transactionsPath,
		HeaderLeaf:       headerPath,
		BlockHash:        blockHash,
		BlockHeight:      blk.Height(),
		BlockPath:        blockPath,
		StateRoot:        l.tree.Root(),
	}, nil
}

// transitionCommitmentPath locates commitment among t's output commitments
// and returns its Merkle path within that leaf set.
func transitionCommitmentPath(t *transaction.Transition, commitment types.Commitment) ([][]byte, error) {
	commitments := t.OutputCommitments()
	leaves := make([]types.Hash, len(commitments))
	index := -1
	for i, cm := range commitments {
		leaves[i] = types.Hash(cm)
		if cm == commitment {
			index = i
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("commitment %s not found in transition %s: %w", commitment, t.ID, ErrMissing)
	}
	return block.MerklePath(leaves, index), nil
}

// transitionIDPath locates transitionID among tx's transition IDs and
// returns its Merkle path within that leaf set.
func transitionIDPath(tx *transaction.Transaction, transitionID types.Hash) ([][]byte, error) {
	ids := tx.TransitionIDs()
	index := -1
	for i, id := range ids {
		if id == transitionID {
			index = i
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("transition %s not found in transaction %s: %w", transitionID, tx.ID, ErrMissing)
	}
	return block.MerklePath(ids, index), nil
}

// transactionIDPath locates txID among blk's transaction IDs and returns
// its Merkle path within that leaf set, rooting at TransactionsRoot.
func transactionIDPath(blk *block.Block, txID types.Hash) ([][]byte, error) {
	ids := blk.TransactionIDs()
	index := -1
	for i, id := range ids {
		if id == txID {
			index = i
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("transaction %s not found in block %s: %w", txID, blk.Hash(), ErrMissing)
	}
	return block.MerklePath(ids, index), nil
}
