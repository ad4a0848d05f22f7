package ledger

import (
	"fmt"

	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
)

// MaxTransactionsPerBlock bounds a proposed block's transaction list.
// The distilled spec names only "Transactions::MAX_TRANSACTIONS" without
// giving its value; 2^16 is chosen as a generous, round bound (DESIGN.md).
const MaxTransactionsPerBlock = 1 << 16

// CheckTransaction validates tx against current ledger state: structural
// well-formedness, VM verification, and uniqueness against the stores of
// its transaction ID, serial numbers, tags, commitments and output IDs,
// plus the origin checks. Output nonces and transition public keys are
// not checked for uniqueness. It does not mutate any state. Used both by
// mempool admission (§4.6) and by CheckNextBlock's per-transaction pass.
func (l *Ledger) CheckTransaction(tx *transaction.Transaction) error {
	if tx == nil {
		return fmt.Errorf("nil transaction: %w", ErrMissing)
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("transaction %s structurally invalid: %w", tx.ID, ErrMismatch)
	}
	if !l.vm.Verify(tx) {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrVerificationFailed)
	}
	if l.transactions.ContainsTransactionID(tx.ID) {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrDuplicate)
	}
	for _, sn := range tx.SerialNumbers() {
		if l.transitions.ContainsSerialNumber(sn) {
			return fmt.Errorf("serial number %s: %w", sn, ErrDuplicate)
		}
	}
	for _, tag := range tx.Tags() {
		if l.transitions.ContainsTag(tag) {
			return fmt.Errorf("tag %s: %w", tag, ErrDuplicate)
		}
	}
	for _, cm := range tx.Commitments() {
		if l.transitions.ContainsCommitment(cm) {
			return fmt.Errorf("commitment %s: %w", cm, ErrDuplicate)
		}
	}
	for _, oid := range tx.OutputIDs() {
		if l.transitions.ContainsOutputID(oid) {
			return fmt.Errorf("output ID %s: %w", oid, ErrDuplicate)
		}
	}
	for _, origin := range tx.Origins() {
		if origin.IsReserved() {
			return fmt.Errorf("origin uses reserved state_root variant: %w", ErrUnsupported)
		}
		if origin.Commitment != nil && !l.transitions.ContainsCommitment(*origin.Commitment) {
			return fmt.Errorf("origin commitment %s: %w", *origin.Commitment, ErrMissing)
		}
	}
	return nil
}

// CheckNextBlock runs every §4.2 predicate against blk, assuming it would
// extend the current tip. The caller is expected to hold l.mu (it is
// invoked as the first step of AddNextBlock, and exposed standalone for
// block-proposal dry runs and tests).
func (l *Ledger) CheckNextBlock(blk *block.Block) error {
	if err := blk.Validate(); err != nil {
		return fmt.Errorf("structural validation: %w", err)
	}

	// Tip linkage.
	if blk.PreviousHash != l.tip.hash {
		return fmt.Errorf("previous_hash %s != current_hash %s: %w", blk.PreviousHash, l.tip.hash, ErrMismatch)
	}
	blkHash := blk.Hash()
	if l.blocks.ContainsBlockHash(blkHash) {
		return fmt.Errorf("block hash %s: %w", blkHash, ErrDuplicate)
	}
	if l.tip.height > 0 && blk.Height() != l.tip.height+1 {
		return fmt.Errorf("height %d != current_height+1 (%d): %w", blk.Height(), l.tip.height+1, ErrMismatch)
	}
	if l.blocks.ContainsBlockHeight(blk.Height()) {
		return fmt.Errorf("height %d: %w", blk.Height(), ErrDuplicate)
	}
	// Round monotonicity: block.round >= latest_round + 1, not strict
	// equality (REDESIGN FLAG, §9) — leaves room for a future
	// timeout-aware round extension without a protocol break.
	if l.tip.round > 0 && blk.Round() < l.tip.round+1 {
		return fmt.Errorf("round %d < current_round+1 (%d): %w", blk.Round(), l.tip.round+1, ErrMismatch)
	}

	// Time monotonicity (non-genesis only).
	if !blk.IsGenesis() {
		latest, err := l.blocks.GetBlock(l.tip.hash)
		if err != nil {
			return fmt.Errorf("load current tip block: %w", err)
		}
		if blk.Header.Metadata.Timestamp <= latest.Header.Metadata.Timestamp {
			return fmt.Errorf("timestamp %d <= previous timestamp %d: %w", blk.Header.Metadata.Timestamp, latest.Header.Metadata.Timestamp, ErrMismatch)
		}
	}

	// Genesis predicate.
	if blk.Height() == 0 && !blk.IsGenesis() {
		return fmt.Errorf("height 0 block is not a genesis block: %w", ErrMismatch)
	}

	// Header validity and block hash recomputation.
	if blk.Header.Metadata.NetworkID != l.networkID {
		return fmt.Errorf("network_id %d != %d: %w", blk.Header.Metadata.NetworkID, l.networkID, ErrMismatch)
	}
	if blkHash != blk.Hash() {
		return fmt.Errorf("block hash recomputation mismatch: %w", ErrMismatch)
	}

	// Signer: mandatory signature verification over block.hash(), not just
	// signer-presence (§9: "treat block.signature.verify(signer,
	// [block.hash()]) as mandatory"). block.hash() — unlike header.hash() —
	// binds previous_hash (I4), so a validly-signed header can't be
	// replayed behind a different parent.
	if _, err := l.validators.IdentifySigner(blkHash, blk.Signature); err != nil {
		return fmt.Errorf("signer: %w", ErrVerificationFailed)
	}

	// Transactions root.
	if blk.TransactionsRoot() != blk.Header.TransactionsRoot {
		return fmt.Errorf("transactions_root mismatch: %w", ErrMismatch)
	}

	// Transaction list bounds and uniqueness, per-transaction check.
	if !blk.IsGenesis() {
		if len(blk.Transactions) == 0 {
			return fmt.Errorf("non-genesis block has no transactions: %w", ErrOutOfRange)
		}
	}
	if len(blk.Transactions) > MaxTransactionsPerBlock {
		return fmt.Errorf("%d transactions exceeds MaxTransactionsPerBlock: %w", len(blk.Transactions), ErrOutOfRange)
	}
	for _, tx := range blk.Transactions {
		if err := l.CheckTransaction(tx); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}
	if err := l.checkFees(blk); err != nil {
		return err
	}

	return l.checkCoinbaseConstraints(blk)
}

// checkFees enforces that no transition reports a negative fee, and that a
// non-genesis block never carries any transition that calls the reserved
// "genesis" bootstrap function (§4.2: "the credits.aleo/genesis function
// must not appear in any transition").
func (l *Ledger) checkFees(blk *block.Block) error {
	if blk.Height() == 0 {
		return nil
	}
	for _, tx := range blk.Transactions {
		for _, t := range transitionsOf(tx) {
			if t.Function == genesisBootstrapFunction {
				return fmt.Errorf("transition %s uses reserved bootstrap function at height %d: %w", t.ID, blk.Height(), ErrUnsupported)
			}
			if t.Fee < 0 {
				return fmt.Errorf("transition %s has negative fee %d: %w", t.ID, t.Fee, ErrOutOfRange)
			}
		}
	}
	return nil
}

// genesisBootstrapFunction names the reserved function the VM integration
// layer uses to mint the starting supply at genesis; it must never appear
// past height 0.
const genesisBootstrapFunction = "genesis"

// transitionsOf mirrors transaction.Transaction's unexported transitions
// helper; the ledger needs the same enumeration to walk fee fields.
func transitionsOf(tx *transaction.Transaction) []*transaction.Transition {
	switch tx.Kind {
	case transaction.KindDeploy:
		if tx.Deploy == nil {
			return nil
		}
		return []*transaction.Transition{&tx.Deploy.Fee}
	case transaction.KindExecute:
		if tx.Execute == nil {
			return nil
		}
		out := make([]*transaction.Transition, 0, len(tx.Execute.Transitions)+1)
		for i := range tx.Execute.Transitions {
			out = append(out, &tx.Execute.Transitions[i])
		}
		if tx.Execute.Fee != nil {
			out = append(out, tx.Execute.Fee)
		}
		return out
	}
	return nil
}

// checkCoinbaseConstraints implements §4.2's coinbase-proof present/absent
// predicates.
func (l *Ledger) checkCoinbaseConstraints(blk *block.Block) error {
	anchorHeight := coinbase.AnchorBlockHeight(secondsPerYear, anchorYears)

	if blk.CoinbaseProof != nil {
		if blk.Height() > anchorHeight {
			return fmt.Errorf("coinbase proof present past anchor height %d: %w", anchorHeight, ErrOutOfRange)
		}
		point, err := blk.CoinbaseProof.ToAccumulatorPoint()
		if err != nil {
			return fmt.Errorf("accumulator point: %w", err)
		}
		if point != blk.Header.CoinbaseAccumulatorPoint {
			return fmt.Errorf("coinbase_accumulator_point mismatch: %w", ErrMismatch)
		}
		ok, err := l.puzzle.Verify(blk.CoinbaseProof, l.epoch, l.tip.coinbaseTarget, l.tip.proofTarget)
		if err != nil || !ok {
			return fmt.Errorf("coinbase proof verification: %w", ErrVerificationFailed)
		}
		return nil
	}

	if !blk.Header.CoinbaseAccumulatorPoint.IsZero() {
		return fmt.Errorf("coinbase_accumulator_point must be zero without a coinbase proof: %w", ErrMismatch)
	}
	return nil
}

// secondsPerYear and anchorYears fix the anchor-block-height milestone
// named in §6's glossary at "10 years of ANCHOR_TIME-second blocks".
const (
	secondsPerYear = 365 * 24 * 60 * 60
	anchorYears    = 10
)
