package ledger

import (
	"fmt"

	"github.com/klingon-tech/klingnet-ledger/internal/storage"
	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
)

// namespacedBatch routes writes for one store's namespace into a batch
// shared across every store in the current append, so the whole block
// commits as one atomic storage write (§4.4's "single committed storage
// batch rather than many individually-durable writes").
type namespacedBatch struct {
	shared storage.Batch
	prefix []byte
}

func (n namespacedBatch) Put(key, value []byte) error {
	full := make([]byte, len(n.prefix)+len(key))
	copy(full, n.prefix)
	copy(full[len(n.prefix):], key)
	return n.shared.Put(full, value)
}

func (n namespacedBatch) Delete(key []byte) error {
	full := make([]byte, len(n.prefix)+len(key))
	copy(full, n.prefix)
	copy(full[len(n.prefix):], key)
	return n.shared.Delete(full)
}

// Commit is a no-op: the shared batch is committed exactly once by the
// caller after every namespaced view has queued its writes.
func (namespacedBatch) Commit() error { return nil }

// AddNextBlock validates blk against the current tip and, only if every
// §4.2 predicate holds, commits it atomically: every store write goes
// through one shared storage.Batch, the in-memory tip/tree/mempools are
// only mutated after that batch commits successfully, and any failure
// along the way leaves the ledger bit-identical to its pre-call state
// (§4.4, P1).
func (l *Ledger) AddNextBlock(blk *block.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.CheckNextBlock(blk); err != nil {
		l.log.Warn().Err(err).Uint64("height", blk.Height()).Msg("block rejected")
		return fmt.Errorf("check_next_block: %w", err)
	}

	batcher, ok := l.db.(storage.Batcher)
	if !ok {
		return fmt.Errorf("ledger: root store does not support batched writes")
	}
	shared := batcher.NewBatch()

	blocksBatch := namespacedBatch{shared: shared, prefix: blocksNamespace}
	txBatch := namespacedBatch{shared: shared, prefix: transactionsNamespace}
	transitionsBatch := namespacedBatch{shared: shared, prefix: transitionsNamespace}
	programsBatch := namespacedBatch{shared: shared, prefix: programsNamespace}

	if err := l.blocks.InsertBatch(blocksBatch, blk); err != nil {
		return fmt.Errorf("queue block insert: %w", err)
	}
	deployedPrograms := make(map[string]bool)
	for _, tx := range blk.Transactions {
		if err := l.transactions.InsertBatch(txBatch, tx); err != nil {
			return fmt.Errorf("queue transaction insert: %w", err)
		}
		for _, t := range transitionsOf(tx) {
			if err := l.transitions.InsertBatch(transitionsBatch, t); err != nil {
				return fmt.Errorf("queue transition insert: %w", err)
			}
		}
		if tx.Kind == transaction.KindDeploy && tx.Deploy != nil {
			pidKey := tx.Deploy.ProgramID.String()
			if !deployedPrograms[pidKey] {
				if err := l.programs.InsertBatch(programsBatch, tx.Deploy.ProgramID); err != nil {
					return fmt.Errorf("queue program insert: %w", err)
				}
				deployedPrograms[pidKey] = true
			}
		}
	}

	// Finalize every transaction through the VM before committing storage:
	// a finalize failure must abort the whole append (§7: "VM finalize
	// errors during append abort the append").
	finalizedCount := 0
	for _, tx := range blk.Transactions {
		if err := l.vm.Finalize(tx); err != nil {
			l.rollbackFinalize(finalizedCount)
			return fmt.Errorf("finalize transaction %s: %w", tx.ID, err)
		}
		finalizedCount++
	}

	if err := shared.Commit(); err != nil {
		l.rollbackFinalize(finalizedCount)
		return fmt.Errorf("commit append batch: %w", err)
	}

	blkHash := blk.Hash()
	if err := l.tree.Append(blkHash); err != nil {
		return fmt.Errorf("append to block tree: %w", err)
	}

	l.tip = tip{
		hash:           blkHash,
		height:         blk.Height(),
		round:          blk.Round(),
		coinbaseTarget: blk.Header.Metadata.CoinbaseTarget,
		proofTarget:    blk.Header.Metadata.ProofTarget,
		timestamp:      blk.Header.Metadata.Timestamp,
	}

	newEpoch := blk.EpochNumber(l.epochBlocks)
	if newEpoch != l.epochNumber {
		epochStartHeight := newEpoch * l.epochBlocks
		epochStartHash, err := l.blocks.HashAtHeight(epochStartHeight)
		if err != nil {
			epochStartHash = blkHash
		}
		l.epoch = coinbase.NewEpochChallenge(newEpoch, epochStartHash)
		l.epochNumber = newEpoch
		l.solPool.AdvanceEpoch(newEpoch)
	}

	l.purgeMempools(blk)

	l.log.Info().Uint64("height", blk.Height()).Str("hash", blkHash.String()).Int("transactions", len(blk.Transactions)).Msg("block appended")
	return nil
}

// rollbackFinalize is best-effort: the reference VM has no unfinalize
// operation, so this only logs. A real VM integration would need its own
// compensating-transaction support; the storage batch itself is never
// committed when finalize fails, so the stores remain consistent — only
// the VM's internal bookkeeping could be left partially applied.
func (l *Ledger) rollbackFinalize(finalizedCount int) {
	if finalizedCount == 0 {
		return
	}
	l.log.Warn().Int("finalized_before_abort", finalizedCount).Msg("append aborted after partial VM finalize")
}

// purgeMempools removes every transaction and solution the new block
// consumed, plus any pool entry that no longer passes CheckTransaction
// against the post-append state (§4.4: "purge now-invalid mempool
// entries").
func (l *Ledger) purgeMempools(blk *block.Block) {
	ids := blk.TransactionIDs()
	l.txPool.RemoveAll(ids)

	for _, tx := range l.txPool.Ordered() {
		if err := l.CheckTransaction(tx); err != nil {
			l.txPool.Remove(tx.ID)
		}
	}
}
