package ledger

import (
	"fmt"

	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
)

// AddTransaction admits tx into the transaction mempool: it must not
// already be pooled by ID and must pass CheckTransaction against current
// ledger state (§4.6).
func (l *Ledger) AddTransaction(tx *transaction.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.txPool.Contains(tx.ID) {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrDuplicate)
	}
	if err := l.CheckTransaction(tx); err != nil {
		return fmt.Errorf("admit transaction: %w", err)
	}
	return l.txPool.Insert(tx)
}

// AddProverSolution admits sol into the solution mempool: the current tip
// must still be before the coinbase anchor height, and the solution's
// derived target must clear the current proof_target (§4.6: "solution
// verifies against (coinbase_verifying_key, latest_epoch_challenge,
// latest_proof_target)" — the per-solution check is the target threshold;
// the KZG pairing check runs once over the aggregated batch at proposal
// time, not per solution admitted here).
func (l *Ledger) AddProverSolution(sol coinbase.PartialSolution) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	anchorHeight := coinbase.AnchorBlockHeight(secondsPerYear, anchorYears)
	if l.tip.height+1 > anchorHeight {
		return fmt.Errorf("height %d past anchor height %d: %w", l.tip.height+1, anchorHeight, ErrOutOfRange)
	}
	if sol.ToTarget() < l.tip.proofTarget {
		return fmt.Errorf("solution target below proof_target %d: %w", l.tip.proofTarget, ErrVerificationFailed)
	}
	return l.solPool.Insert(sol)
}
