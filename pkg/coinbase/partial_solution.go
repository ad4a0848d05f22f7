package coinbase

import (
	"encoding/binary"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/kzg"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
	"github.com/zeebo/blake3"
)

// PartialSolution is a single prover's contribution to a coinbase solution:
// the KZG opening proof (quotient commitment) of the shared epoch
// polynomial E at the nonce-derived point a = HashToFieldPoint(epoch,
// address, nonce), together with the prover's address and nonce.
//
// Treating the opening proof itself as "the commitment" (rather than a
// separate commitment to a per-prover polynomial) is a deliberate
// simplification recorded in DESIGN.md: it lets a single partial solution
// be exactly one non-hiding KZG proof, reusable unmodified as one of the
// n terms batched by CoinbaseSolution.Verify.
type PartialSolution struct {
	Address    types.Address    `json:"address"`
	Nonce      uint64           `json:"nonce"`
	Commitment types.Commitment `json:"commitment"`
}

// Point returns the nonce-derived evaluation point this solution opens E at.
func (p *PartialSolution) Point(epochNumber uint64) bn254fr.Element {
	return HashToFieldPoint(epochNumber, p.Address.Bytes(), p.Nonce)
}

// Prove computes a prover's KZG opening proof of the epoch polynomial at
// this solution's nonce-derived point, using the coinbase puzzle's proving
// key. The resulting opening proof's commitment component becomes the
// solution's Commitment field.
func Prove(pk kzg.ProvingKey, epoch *EpochChallenge, address types.Address, nonce uint64) (*PartialSolution, error) {
	point := HashToFieldPoint(epoch.EpochNumber, address.Bytes(), nonce)
	proof, err := kzg.Open(epoch.EpochPolynomial, point, pk)
	if err != nil {
		return nil, err
	}
	commitment, err := compressG1(proof.H)
	if err != nil {
		return nil, err
	}
	return &PartialSolution{Address: address, Nonce: nonce, Commitment: commitment}, nil
}

// ToTarget derives this solution's proof-of-work target from its
// commitment: target = floor(MaxUint64 / h) where h is the first eight
// bytes of BLAKE3(commitment), clamped to at least 1. A rarer (smaller) hash
// therefore yields a higher target, mirroring a conventional PoW hash/target
// inversion.
func (p *PartialSolution) ToTarget() uint64 {
	sum := blake3.Sum256(p.Commitment[:])
	h := binary.LittleEndian.Uint64(sum[:8])
	if h == 0 {
		h = 1
	}
	return math.MaxUint64 / h
}

// compressG1 serializes a bn254 G1 affine point into its 32-byte compressed form.
func compressG1(p bn254.G1Affine) (types.Commitment, error) {
	var c types.Commitment
	b := p.Bytes()
	copy(c[:], b[:])
	return c, nil
}

// decompressG1 parses a 32-byte compressed bn254 G1 point.
func decompressG1(c types.Commitment) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	_, err := p.SetBytes(c[:])
	return p, err
}
