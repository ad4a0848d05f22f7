package ledger

import (
	"fmt"
	"math/big"

	"github.com/klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ProposedReward is the informational (uncredited) per-prover reward
// computed alongside a proposal. The ledger core never applies these to
// any balance (§9: "leave the crediting step to the VM integration
// layer").
type ProposedReward struct {
	Total     uint64
	PerProver map[types.Address]uint64
}

// ProposeNextBlock assembles a candidate block extending the current tip,
// signed by signer. It takes the write lock for the duration of the call
// since it reads a consistent snapshot of tip, mempools, and epoch state
// (§5: "read-only operations ... may execute concurrently", but a
// proposal that races an append could select already-committed inputs, so
// this core serializes proposal with append rather than exposing a
// separate RWMutex read path).
func (l *Ledger) ProposeNextBlock(signer crypto.Signer, timestamp int64) (*block.Block, *ProposedReward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txs := l.selectTransactions()
	solutions := l.selectSolutions()

	var coinbaseProof *coinbase.CoinbaseSolution
	accumulatorPoint := types.Field{}
	reward := &ProposedReward{PerProver: make(map[types.Address]uint64)}

	anchorHeight := coinbase.AnchorBlockHeight(secondsPerYear, anchorYears)
	nextHeight := l.tip.height + 1

	if len(solutions) > 0 && nextHeight <= anchorHeight {
		cumulative := new(big.Int)
		for _, s := range solutions {
			cumulative.Add(cumulative, new(big.Int).SetUint64(s.ToTarget()))
		}
		if cumulative.Cmp(new(big.Int).SetUint64(l.tip.coinbaseTarget)) >= 0 {
			proof, err := l.puzzle.Accumulate(solutions)
			if err != nil {
				return nil, nil, fmt.Errorf("accumulate coinbase solutions: %w", err)
			}
			point, err := proof.ToAccumulatorPoint()
			if err != nil {
				return nil, nil, fmt.Errorf("accumulator point: %w", err)
			}
			coinbaseProof = proof
			accumulatorPoint = point

			rewardTotal := consensus.CoinbaseReward(coinbase.StartingSupply, nextHeight, l.anchorTime, l.tip.timestamp, timestamp)
			reward.Total = rewardTotal
			two := new(big.Int).Lsh(big.NewInt(1), 1)
			denominator := new(big.Int).Mul(two, cumulative)
			for _, s := range solutions {
				if denominator.Sign() == 0 {
					continue
				}
				num := new(big.Int).Mul(new(big.Int).SetUint64(rewardTotal), new(big.Int).SetUint64(s.ToTarget()))
				share := new(big.Int).Div(num, denominator)
				reward.PerProver[s.Address] += share.Uint64()
			}
		}
	}

	newCoinbaseTarget := consensus.CoinbaseTarget(l.tip.coinbaseTarget, l.tip.timestamp, timestamp, l.anchorTime)
	newProofTarget := consensus.ProofTarget(newCoinbaseTarget)

	txIDs := make([]types.Hash, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID
	}
	transactionsRoot := block.ComputeMerkleRoot(txIDs)

	header := &block.Header{
		StateRoot:                l.tree.Root(),
		TransactionsRoot:         transactionsRoot,
		CoinbaseAccumulatorPoint: accumulatorPoint,
		Metadata: block.Metadata{
			NetworkID:      l.networkID,
			Round:          l.tip.round + 1,
			Height:         nextHeight,
			CoinbaseTarget: newCoinbaseTarget,
			ProofTarget:    newProofTarget,
			Timestamp:      timestamp,
		},
	}

	blk := block.NewBlock(l.tip.hash, header, txs, coinbaseProof)
	// Sign block.hash(), not header.hash(): the block hash binds
	// previous_hash (I4), which §9 requires the signature to cover.
	sig, err := signer.Sign(blk.Hash().Bytes())
	if err != nil {
		return nil, nil, fmt.Errorf("sign block: %w", err)
	}
	blk.Signature = sig

	return blk, reward, nil
}

// selectTransactions performs the greedy, first-fit conflict resolution
// over the transaction pool in its insertion order: a transaction is
// skipped if any serial number it would spend collides with one already
// selected.
func (l *Ledger) selectTransactions() []*transaction.Transaction {
	pending := l.txPool.Ordered()
	selected := make([]*transaction.Transaction, 0, len(pending))
	spent := make(map[types.SerialNumber]bool)

	for _, tx := range pending {
		sns := tx.SerialNumbers()
		conflict := false
		for _, sn := range sns {
			if spent[sn] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for _, sn := range sns {
			spent[sn] = true
		}
		selected = append(selected, tx)
	}
	return selected
}

// selectSolutions takes up to MaxProverSolutions solutions from the
// solution pool in insertion order.
func (l *Ledger) selectSolutions() []coinbase.PartialSolution {
	pending := l.solPool.Ordered()
	if len(pending) > coinbase.MaxProverSolutions {
		pending = pending[:coinbase.MaxProverSolutions]
	}
	return pending
}
