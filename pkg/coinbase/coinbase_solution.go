package coinbase

import (
	"encoding/binary"
	"errors"
	"math/big"

	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/kzg"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
	"github.com/zeebo/blake3"
)

var (
	ErrEmptySolutions      = errors.New("coinbase: no partial solutions")
	ErrTooManySolutions    = errors.New("coinbase: too many partial solutions")
	ErrCumulativeOverflow  = errors.New("coinbase: cumulative target overflows u128")
	ErrBelowCoinbaseTarget = errors.New("coinbase: cumulative target below coinbase target")
	ErrBelowProofTarget    = errors.New("coinbase: solution below proof target")
	ErrChallengeCount      = errors.New("coinbase: wrong number of challenge points")
	ErrVerificationFailed  = errors.New("coinbase: pairing check failed")
)

// maxU128 bounds the cumulative target accumulator, matching the reference
// contract's "checked u128 add" semantics.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CoinbaseSolution is the ordered collection of partial solutions plus the
// aggregated accumulator commitment produced by Accumulate.
type CoinbaseSolution struct {
	PartialSolutions []PartialSolution `json:"partial_solutions"`
	Proof            types.Commitment  `json:"proof"`
}

// ToCumulativeTarget sums every partial solution's target with checked
// (non-overflowing) u128 arithmetic.
func (c *CoinbaseSolution) ToCumulativeTarget() (*big.Int, error) {
	total := new(big.Int)
	for _, s := range c.PartialSolutions {
		total.Add(total, new(big.Int).SetUint64(s.ToTarget()))
		if total.Cmp(maxU128) > 0 {
			return nil, ErrCumulativeOverflow
		}
	}
	return total, nil
}

// challengeWeights hashes the ordered list of commitments into len+1 field
// challenges: the first len are per-solution MSM weights used to build the
// stored accumulator commitment, the last is popped as the accumulator
// point recorded in the block header.
func challengeWeights(commitments []types.Commitment) []bn254fr.Element {
	out := make([]bn254fr.Element, len(commitments)+1)
	for i := 0; i <= len(commitments); i++ {
		h := blake3.New()
		h.Write([]byte("klingnet.coinbase.challenge"))
		var idx [8]byte
		binary.LittleEndian.PutUint64(idx[:], uint64(i))
		h.Write(idx[:])
		for _, c := range commitments {
			h.Write(c[:])
		}
		sum := h.Sum(nil)
		out[i].SetBytes(sum)
	}
	return out
}

// ToAccumulatorPoint derives the accumulator point z: the last of
// len(n)+1 Fiat-Shamir challenges drawn from the ordered partial solution
// commitments. It is a structural, publicly-checkable derived value
// recorded in the block header (header.coinbase_accumulator_point); the
// cryptographic soundness of the aggregation itself is carried by Verify's
// batched pairing check, not by z (see DESIGN.md, OQ-1).
func (c *CoinbaseSolution) ToAccumulatorPoint() (types.Field, error) {
	if len(c.PartialSolutions) == 0 {
		return types.Field{}, ErrChallengeCount
	}
	commitments := make([]types.Commitment, len(c.PartialSolutions))
	for i, s := range c.PartialSolutions {
		commitments[i] = s.Commitment
	}
	weights := challengeWeights(commitments)
	if len(weights) != len(commitments)+1 {
		return types.Field{}, ErrChallengeCount
	}
	z := weights[len(weights)-1]
	b := z.Bytes()
	var f types.Field
	copy(f[:], b[:])
	return f, nil
}

// accumulatorCommitment computes Σ c_i · Commitment_i, the MSM the external
// interface names "accumulator_commitment", using a fresh G1 MSM from
// gnark-crypto over the solutions' own opening-proof commitments.
func accumulatorCommitment(solutions []PartialSolution, weights []bn254fr.Element) (types.Commitment, error) {
	points := make([]G1Affine, len(solutions))
	for i, s := range solutions {
		p, err := decompressG1(s.Commitment)
		if err != nil {
			return types.Commitment{}, err
		}
		points[i] = p
	}
	acc, err := msmG1(points, weights[:len(solutions)])
	if err != nil {
		return types.Commitment{}, err
	}
	var out types.Commitment
	b := acc.Bytes()
	copy(out[:], b[:])
	return out, nil
}

// Verify checks a coinbase solution against the coinbase puzzle's verifying
// key, epoch challenge, and the two retargeted thresholds, in the order
// named by the external interface.
//
// The final cryptographic check batches every partial solution's individual
// opening of the (public, per-epoch) commitment to E at its own
// nonce-derived point into a single pairing check via gnark-crypto's
// multi-point KZG batch verifier, rather than hand-rolling pairing
// arithmetic (see DESIGN.md).
func Verify(c *CoinbaseSolution, commitE kzg.Digest, vk kzg.VerifyingKey, epoch *EpochChallenge, coinbaseTarget, proofTarget uint64) (bool, error) {
	n := len(c.PartialSolutions)
	if n == 0 {
		return false, ErrEmptySolutions
	}
	if n > MaxNumProofs {
		return false, ErrTooManySolutions
	}

	cumulative, err := c.ToCumulativeTarget()
	if err != nil {
		return false, err
	}
	if cumulative.Cmp(new(big.Int).SetUint64(coinbaseTarget)) < 0 {
		return false, ErrBelowCoinbaseTarget
	}
	for _, s := range c.PartialSolutions {
		if s.ToTarget() < proofTarget {
			return false, ErrBelowProofTarget
		}
	}

	commitments := make([]types.Commitment, n)
	for i, s := range c.PartialSolutions {
		commitments[i] = s.Commitment
	}
	weights := challengeWeights(commitments)
	if len(weights) != n+1 {
		return false, ErrChallengeCount
	}

	accCommitment, err := accumulatorCommitment(c.PartialSolutions, weights)
	if err != nil {
		return false, err
	}
	if accCommitment != c.Proof {
		return false, ErrVerificationFailed
	}

	digests := make([]kzg.Digest, n)
	proofs := make([]kzg.OpeningProof, n)
	points := make([]bn254fr.Element, n)
	for i, s := range c.PartialSolutions {
		digests[i] = commitE
		proof, err := decompressG1(s.Commitment)
		if err != nil {
			return false, err
		}
		a := s.Point(epoch.EpochNumber)
		y := evaluatePolynomial(epoch.EpochPolynomial, a)
		proofs[i] = kzg.OpeningProof{H: proof, ClaimedValue: y}
		points[i] = a
	}

	if err := kzg.BatchVerifyMultiPoints(digests, proofs, points, vk); err != nil {
		return false, ErrVerificationFailed
	}
	return true, nil
}
