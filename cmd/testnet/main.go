// Command testnet boots a single in-process ledger against a freshly
// generated validator key and walks it through the core end-to-end
// scenarios: genesis bootstrap, a deploy transaction, the proof-target and
// coinbase-target solution gates, and the validator signer gate. Unlike
// the teacher's two-node gossip testnet, there is no networking layer to
// exercise here (SPEC_FULL §1 puts peer gossip out of scope) — this is a
// single node driving its own ledger end to end.
//
// Usage: go run ./cmd/testnet
package main

import (
	"fmt"
	"os"

	"github.com/klingon-tech/klingnet-ledger/config"
	"github.com/klingon-tech/klingnet-ledger/internal/ledger"
	klog "github.com/klingon-tech/klingnet-ledger/internal/log"
	"github.com/klingon-tech/klingnet-ledger/internal/storage"
	"github.com/klingon-tech/klingnet-ledger/internal/vm"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

func main() {
	if err := klog.Init("info", false, ""); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.Node
	logger.Info().Msg("=== klingnet local testnet ===")

	validatorKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("generate validator key")
	}
	defer validatorKey.Zero()
	validatorAddr := crypto.AddressFromPubKey(validatorKey.PublicKey())

	gen := config.DevnetGenesis()
	gen.Validators = []config.Validator{{Address: validatorAddr, PublicKey: validatorKey.PublicKey()}}

	puzzle, err := coinbase.Load(gen.ConstantsOverride.PuzzleDegree())
	if err != nil {
		logger.Fatal().Err(err).Msg("load coinbase puzzle")
	}

	l, err := ledger.Open(gen, storage.NewMemory(), puzzle, vm.NewReferenceVM())
	if err != nil {
		logger.Fatal().Err(err).Msg("open ledger")
	}

	// Scenario 1: genesis bootstrap.
	if l.CurrentHeight() != 0 || l.CurrentHash() != gen.GenesisBlock.Hash() {
		logger.Fatal().Msg("scenario 1 failed: genesis bootstrap did not take")
	}
	logger.Info().Uint64("height", l.CurrentHeight()).Msg("scenario 1 ok: genesis bootstrap")

	ts := gen.GenesisBlock.Header.Metadata.Timestamp
	step := int64(gen.ConstantsOverride.AnchorTime)

	// Scenario 6: validator gate — an intruder key cannot sign an accepted block.
	intruderKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("generate intruder key")
	}
	ts += step
	forged, _, err := l.ProposeNextBlock(intruderKey, ts)
	if err != nil {
		logger.Fatal().Err(err).Msg("propose forged block")
	}
	if err := l.CheckNextBlock(forged); err == nil {
		logger.Fatal().Msg("scenario 6 failed: block signed by a non-validator key was accepted")
	}
	logger.Info().Msg("scenario 6 ok: non-validator signature rejected")

	// Scenario 2: single deploy transaction.
	deployTx := buildDeployTx("counter.aleo")
	if err := l.AddTransaction(deployTx); err != nil {
		logger.Fatal().Err(err).Msg("admit deploy transaction")
	}
	ts += step
	blk, _, err := l.ProposeNextBlock(validatorKey, ts)
	if err != nil {
		logger.Fatal().Err(err).Msg("propose deploy block")
	}
	if err := l.AddNextBlock(blk); err != nil {
		logger.Fatal().Err(err).Msg("append deploy block")
	}
	if l.CurrentHeight() != 1 {
		logger.Fatal().Msg("scenario 2 failed: height did not advance to 1")
	}
	if err := l.CheckTransaction(deployTx); err == nil {
		logger.Fatal().Msg("scenario 2 failed: re-submitting the same deploy should now fail as a duplicate")
	}
	logger.Info().Uint64("height", l.CurrentHeight()).Msg("scenario 2 ok: deploy committed, duplicate rejected")

	// Scenarios 4 and 5: proof-target filter and coinbase-target gate.
	runCoinbaseScenarios(l, validatorKey, ts, step)

	logger.Info().Msg("=== all scenarios passed ===")
}

// buildDeployTx assembles a single deploy transaction with a zero-fee
// transition and a correctly stamped content-addressed ID.
func buildDeployTx(programName string) *transaction.Transaction {
	pid := types.ProgramID(crypto.Hash([]byte(programName)))
	tx := transaction.NewDeploy(types.Hash{}, transaction.Deploy{
		ProgramID: pid,
		Edition:   0,
		Fee: transaction.Transition{
			ID:        crypto.Hash([]byte(programName + "/fee")),
			ProgramID: pid,
			Function:  "fee",
			Fee:       0,
		},
	})
	id, err := tx.ComputeID()
	if err != nil {
		panic(err)
	}
	tx.ID = id
	return tx
}

// runCoinbaseScenarios generates prover solutions at increasing nonces,
// admits them into the solution pool, and checks that proposals only carry
// a coinbase proof once the accumulated target reaches coinbase_target —
// and that every admitted solution individually clears proof_target.
func runCoinbaseScenarios(l *ledger.Ledger, validatorKey *crypto.PrivateKey, ts, step int64) {
	logger := klog.Node
	_, epoch := l.CurrentEpoch()
	coinbaseTarget, proofTarget := l.CurrentTargets()
	addr := crypto.AddressFromPubKey(validatorKey.PublicKey())

	admitted := 0
	for nonce := uint64(0); nonce < 200 && admitted < 8; nonce++ {
		sol, err := l.Puzzle().Prove(epoch, addr, nonce)
		if err != nil {
			logger.Fatal().Err(err).Msg("generate partial solution")
		}
		target := sol.ToTarget()
		err = l.AddProverSolution(*sol)
		if target < proofTarget {
			if err == nil {
				logger.Fatal().Msg("scenario 4 failed: a below-proof_target solution was admitted")
			}
			continue
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("admit qualifying partial solution")
		}
		admitted++
	}
	logger.Info().Int("admitted", admitted).Uint64("proof_target", proofTarget).Msg("scenario 4 ok: proof-target filter enforced")

	if err := l.AddTransaction(buildDeployTx("coinbase.aleo")); err != nil {
		logger.Fatal().Err(err).Msg("admit coinbase-block transaction")
	}
	blk, _, err := l.ProposeNextBlock(validatorKey, ts+step)
	if err != nil {
		logger.Fatal().Err(err).Msg("propose coinbase block")
	}
	hasProof := blk.CoinbaseProof != nil
	if hasProof {
		point, err := blk.CoinbaseProof.ToAccumulatorPoint()
		if err != nil || point != blk.Header.CoinbaseAccumulatorPoint {
			logger.Fatal().Msg("scenario 5 failed: accumulator point does not match proof")
		}
	} else if !blk.Header.CoinbaseAccumulatorPoint.IsZero() {
		logger.Fatal().Msg("scenario 5 failed: accumulator point set without a coinbase proof")
	}
	if err := l.AddNextBlock(blk); err != nil {
		logger.Fatal().Err(err).Msg("append coinbase block")
	}
	logger.Info().Bool("coinbase_proof_present", hasProof).Uint64("coinbase_target", coinbaseTarget).Msg("scenario 5 ok: coinbase-target gate enforced")
}
