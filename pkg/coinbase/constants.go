// Package coinbase implements the coinbase puzzle: a per-epoch,
// KZG-polynomial-commitment based proof-of-useful-work scheme. Provers
// evaluate a shared epoch polynomial at a nonce-derived point and submit
// the opening proof as their partial solution; the ledger aggregates
// partial solutions into a single batched KZG proof and verifies the whole
// batch with one pairing check.
package coinbase

// BlocksDepth is the fixed depth of the ledger's block tree.
const BlocksDepth = 32

// AnchorTime is the number of seconds the reference implementation uses as
// its "block second" unit when computing the anchor block height.
const AnchorTime = 20

// CoinbasePuzzleDegree bounds the epoch polynomial's degree: 2^13 - 1.
const CoinbasePuzzleDegree = (1 << 13) - 1

// MaxProverSolutions is the maximum number of partial solutions a proposed
// block may aggregate: 2^20.
const MaxProverSolutions = 1 << 20

// MaxNumProofs bounds the number of partial solutions a single
// CoinbaseSolution.Verify call will aggregate, independent of
// MaxProverSolutions (which bounds block *proposal*, not verification).
// Kept equal to MaxProverSolutions; named separately because the two serve
// different callers (proposer vs. verifier) per the external interface.
const MaxNumProofs = MaxProverSolutions

// NumBlocksPerEpoch is the number of consecutive blocks sharing one epoch
// challenge and epoch polynomial.
const NumBlocksPerEpoch = 256

// GenesisTimestamp is the Unix timestamp assigned to the genesis block.
const GenesisTimestamp = 1663718400

// GenesisCoinbaseTarget and GenesisProofTarget seed retargeting at genesis.
const (
	GenesisCoinbaseTarget = (1 << 10) - 1
	GenesisProofTarget    = 0
)

// StartingSupply is the total informational credit supply at genesis.
const StartingSupply = 1_100_000_000_000_000

// AnchorBlockHeight returns the block height corresponding to a wall-clock
// milestone of secondsPerYear*years, using AnchorTime as the seconds-per-block
// unit. Coinbase proof admissibility is gated by this height.
func AnchorBlockHeight(secondsPerYear int64, years int64) uint64 {
	return uint64((secondsPerYear * years) / AnchorTime)
}
