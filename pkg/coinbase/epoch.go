package coinbase

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/zeebo/blake3"
)

// EpochChallenge is the shared per-epoch state every prover evaluates
// against: a degree-bound polynomial E (epoch_polynomial), derived
// deterministically from the block hash at the start of the epoch, plus
// its evaluations over the FFT domain (epoch_polynomial_evaluations).
type EpochChallenge struct {
	EpochNumber              uint64
	EpochPolynomial          []fr.Element // coefficients, degree <= CoinbasePuzzleDegree
	EpochPolynomialEvaluations []fr.Element // evaluations over the evaluation domain
}

// Degree returns the epoch polynomial's coefficient count minus one.
func (e *EpochChallenge) Degree() int {
	if len(e.EpochPolynomial) == 0 {
		return 0
	}
	return len(e.EpochPolynomial) - 1
}

// NewEpochChallenge deterministically expands the epoch's starting block
// hash into CoinbasePuzzleDegree+1 field-element coefficients via a
// counter-mode hash (hash_to_field pattern), matching the shape the
// reference ledger calls "epoch_polynomial".
func NewEpochChallenge(epochNumber uint64, epochStartBlockHash [32]byte) *EpochChallenge {
	n := CoinbasePuzzleDegree + 1
	coeffs := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		coeffs[i] = hashToField(epochStartBlockHash[:], epochNumber, uint64(i))
	}
	evals := evaluateOverDomain(coeffs)
	return &EpochChallenge{
		EpochNumber:                epochNumber,
		EpochPolynomial:            coeffs,
		EpochPolynomialEvaluations: evals,
	}
}

// hashToField hashes a domain-separated counter alongside the seed into a
// canonical field element, reducing modulo r via fr.Element.SetBytes.
func hashToField(seed []byte, epochNumber, counter uint64) fr.Element {
	h := blake3.New()
	h.Write([]byte("klingnet.coinbase.epoch"))
	h.Write(seed)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], epochNumber)
	binary.LittleEndian.PutUint64(buf[8:], counter)
	h.Write(buf[:])
	sum := h.Sum(nil)

	var e fr.Element
	e.SetBytes(sum)
	return e
}

// HashToFieldPoint derives the nonce-indexed evaluation point a prover
// evaluates the epoch polynomial at: a = hash_to_field(epoch_number, address, nonce).
func HashToFieldPoint(epochNumber uint64, address []byte, nonce uint64) fr.Element {
	h := blake3.New()
	h.Write([]byte("klingnet.coinbase.point"))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], epochNumber)
	h.Write(buf[:])
	h.Write(address)
	binary.LittleEndian.PutUint64(buf[:], nonce)
	h.Write(buf[:])
	sum := h.Sum(nil)

	var e fr.Element
	e.SetBytes(sum)
	return e
}
