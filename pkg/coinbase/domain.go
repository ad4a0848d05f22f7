package coinbase

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
)

// evaluateOverDomain evaluates a polynomial (given by coefficients, low
// degree first) over the canonical FFT evaluation domain of the smallest
// power of two at least len(coeffs).
func evaluateOverDomain(coeffs []fr.Element) []fr.Element {
	domain := fft.NewDomain(uint64(len(coeffs)))
	evals := make([]fr.Element, domain.Cardinality)
	copy(evals, coeffs)
	domain.FFT(evals, fft.DIF)
	fft.BitReverse(evals)
	return evals
}

// evaluatePolynomial evaluates a polynomial at a single point via Horner's
// method. Used by Verify to evaluate the epoch polynomial at each partial
// solution's nonce-derived point, where building a full domain evaluation
// would be wasteful.
func evaluatePolynomial(coeffs []fr.Element, point fr.Element) fr.Element {
	var result fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		result.Mul(&result, &point)
		result.Add(&result, &coeffs[i])
	}
	return result
}
