package coinbase

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/kzg"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// Puzzle holds the coinbase puzzle's structured reference string (SRS),
// loaded once at startup and reused for every Prove/Verify/Accumulate call
// within a process.
type Puzzle struct {
	srs *kzg.SRS
}

// deterministicSetupSeed is the toxic-waste scalar used to derive this
// puzzle's SRS. A production network would instead consume the output of a
// multi-party trusted-setup ceremony; fixing a constant seed here keeps the
// ledger reproducible across nodes without standing up that ceremony, which
// is outside this core's scope (§1: "the underlying ... KZG primitives ...
// treated as opaque libraries").
var deterministicSetupSeed = big.NewInt(0x4b4c47) // "KLG"

// Load initializes the coinbase puzzle's SRS for the given maximum degree.
// Matches the external interface's load(degree=2^13-1).
func Load(degree uint64) (*Puzzle, error) {
	srs, err := kzg.NewSRS(degree+1, deterministicSetupSeed)
	if err != nil {
		return nil, err
	}
	return &Puzzle{srs: srs}, nil
}

// CoinbaseVerifyingKey returns the puzzle's verifying key.
func (p *Puzzle) CoinbaseVerifyingKey() kzg.VerifyingKey {
	return p.srs.Vk
}

// Prove computes a prover's partial solution for the given epoch challenge.
func (p *Puzzle) Prove(epoch *EpochChallenge, address types.Address, nonce uint64) (*PartialSolution, error) {
	return Prove(p.srs.Pk, epoch, address, nonce)
}

// Accumulate aggregates an ordered list of partial solutions into a single
// CoinbaseSolution by computing the deterministic accumulator commitment.
func (p *Puzzle) Accumulate(solutions []PartialSolution) (*CoinbaseSolution, error) {
	if len(solutions) == 0 {
		return nil, ErrEmptySolutions
	}
	commitments := make([]types.Commitment, len(solutions))
	for i, s := range solutions {
		commitments[i] = s.Commitment
	}
	weights := challengeWeights(commitments)
	proofCommitment, err := accumulatorCommitment(solutions, weights)
	if err != nil {
		return nil, err
	}
	return &CoinbaseSolution{PartialSolutions: solutions, Proof: proofCommitment}, nil
}

// Verify verifies a coinbase solution against this puzzle's SRS.
func (p *Puzzle) Verify(solution *CoinbaseSolution, epoch *EpochChallenge, coinbaseTarget, proofTarget uint64) (bool, error) {
	commitE, err := kzg.Commit(epoch.EpochPolynomial, p.srs.Pk)
	if err != nil {
		return false, err
	}
	return Verify(solution, commitE, p.srs.Vk, epoch, coinbaseTarget, proofTarget)
}
