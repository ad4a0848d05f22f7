package block

import (
	"errors"
	"fmt"
)

// Structural validation errors. These cover only what a Block can check
// about itself, in isolation from the rest of the ledger (previous block,
// validator set, stores). Ledger-level predicates — previous-hash linkage,
// coinbase target retargeting, duplicate serial numbers against history —
// live in the ledger package's check_next_block chain.
var (
	ErrNilHeader             = errors.New("block: nil header")
	ErrTransactionsRoot      = errors.New("block: transactions root mismatch")
	ErrNilTransaction        = errors.New("block: nil transaction in block")
	ErrDuplicateTransaction  = errors.New("block: duplicate transaction ID in block")
	ErrDuplicateSerialNumber = errors.New("block: duplicate serial number within block")
	ErrDuplicateCommitment   = errors.New("block: duplicate commitment within block")
	ErrGenesisWithPayload    = errors.New("block: genesis block must carry no transactions or coinbase proof")
	ErrGenesisPrevHash       = errors.New("block: genesis block previous hash must be zero")
)

// Validate checks the block's self-contained structural invariants: every
// transaction is individually well-formed, the transactions root matches
// the recomputed Merkle root over transaction IDs, and no transaction ID,
// serial number, or output commitment repeats within the block. It does
// not touch consensus state (previous block, targets, validator set).
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}

	if b.IsGenesis() {
		if len(b.Transactions) != 0 || b.CoinbaseProof != nil {
			return ErrGenesisWithPayload
		}
	} else if b.PreviousHash.IsZero() {
		return ErrGenesisPrevHash
	}

	seenTx := make(map[string]bool, len(b.Transactions))
	seenSN := make(map[string]bool)
	seenCM := make(map[string]bool)

	for i, tx := range b.Transactions {
		if tx == nil {
			return fmt.Errorf("%w: index %d", ErrNilTransaction, i)
		}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}

		idKey := string(tx.ID[:])
		if seenTx[idKey] {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, tx.ID)
		}
		seenTx[idKey] = true

		for _, sn := range tx.SerialNumbers() {
			key := string(sn[:])
			if seenSN[key] {
				return fmt.Errorf("%w: %s", ErrDuplicateSerialNumber, sn)
			}
			seenSN[key] = true
		}
		for _, cm := range tx.Commitments() {
			key := string(cm[:])
			if seenCM[key] {
				return fmt.Errorf("%w: %s", ErrDuplicateCommitment, cm)
			}
			seenCM[key] = true
		}
	}

	if b.TransactionsRoot() != b.Header.TransactionsRoot {
		return ErrTransactionsRoot
	}

	return nil
}
