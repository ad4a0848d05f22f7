package coinbase

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// G1Affine aliases the curve's affine G1 point type, used for commitments
// and opening proofs throughout this package.
type G1Affine = bn254.G1Affine

// msmG1 computes the multi-scalar multiplication Σ scalars[i] * points[i].
func msmG1(points []G1Affine, scalars []bn254fr.Element) (G1Affine, error) {
	var acc G1Affine
	if len(points) == 0 {
		return acc, nil
	}
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return G1Affine{}, err
	}
	return acc, nil
}
