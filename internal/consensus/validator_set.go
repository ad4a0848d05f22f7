package consensus

import (
	"errors"
	"sync"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ErrNotValidator is returned when a block's signer address is not a
// member of the validator set.
var ErrNotValidator = errors.New("consensus: signer is not a validator")

// ErrSignatureInvalid is returned when a block's signature does not verify
// against any validator's known public key.
var ErrSignatureInvalid = errors.New("consensus: signature verification failed")

// ValidatorSet is the placeholder stand-in for byzantine consensus finality
// named by the data model's "validators: ordered mapping from address to
// unit". Membership is checked by iterating known validator public keys and
// verifying the Schnorr signature against each (Schnorr signatures over
// secp256k1 as used here don't support public-key recovery), mirroring how
// the reference proof-of-authority engine identifies a block's signer.
type ValidatorSet struct {
	mu         sync.RWMutex
	order      []types.Address
	publicKeys map[types.Address][]byte
}

// NewValidatorSet builds a validator set from an ordered list of
// (address, public key) pairs. Order is preserved for deterministic
// iteration (§5: "validator sets must iterate in insertion order").
func NewValidatorSet(addresses []types.Address, publicKeys [][]byte) (*ValidatorSet, error) {
	if len(addresses) != len(publicKeys) {
		return nil, errors.New("consensus: addresses/public keys length mismatch")
	}
	vs := &ValidatorSet{
		order:      make([]types.Address, len(addresses)),
		publicKeys: make(map[types.Address][]byte, len(addresses)),
	}
	copy(vs.order, addresses)
	for i, addr := range addresses {
		vs.publicKeys[addr] = publicKeys[i]
	}
	return vs, nil
}

// Contains reports whether addr is a current validator.
func (vs *ValidatorSet) Contains(addr types.Address) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	_, ok := vs.publicKeys[addr]
	return ok
}

// Addresses returns the validator set in insertion order.
func (vs *ValidatorSet) Addresses() []types.Address {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	out := make([]types.Address, len(vs.order))
	copy(out, vs.order)
	return out
}

// Add registers a new validator, appended to the end of iteration order.
func (vs *ValidatorSet) Add(addr types.Address, publicKey []byte) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, ok := vs.publicKeys[addr]; ok {
		return
	}
	vs.order = append(vs.order, addr)
	vs.publicKeys[addr] = publicKey
}

// Remove drops a validator from the set.
func (vs *ValidatorSet) Remove(addr types.Address) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, ok := vs.publicKeys[addr]; !ok {
		return
	}
	delete(vs.publicKeys, addr)
	for i, a := range vs.order {
		if a == addr {
			vs.order = append(vs.order[:i], vs.order[i+1:]...)
			break
		}
	}
}

// IdentifySigner finds which validator produced sig over messageHash, by
// trying each known validator's public key in turn. Returns ErrNotValidator
// if the set is empty and ErrSignatureInvalid if no validator's key
// verifies the signature.
//
// Per §9's design note, the signature body check is mandatory here — the
// reference excerpt this is grounded on left it commented out, checking
// only that a signer address was present in the validator set.
func (vs *ValidatorSet) IdentifySigner(messageHash types.Hash, sig []byte) (types.Address, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if len(vs.order) == 0 {
		return types.Address{}, ErrNotValidator
	}
	for _, addr := range vs.order {
		pub := vs.publicKeys[addr]
		if crypto.VerifySignature(messageHash[:], sig, pub) {
			return addr, nil
		}
	}
	return types.Address{}, ErrSignatureInvalid
}

// VerifySignedBy checks that sig is a valid signature by addr over
// messageHash, returning ErrNotValidator if addr isn't a member and
// ErrSignatureInvalid if the signature doesn't verify.
func (vs *ValidatorSet) VerifySignedBy(addr types.Address, messageHash types.Hash, sig []byte) error {
	vs.mu.RLock()
	pub, ok := vs.publicKeys[addr]
	vs.mu.RUnlock()
	if !ok {
		return ErrNotValidator
	}
	if !crypto.VerifySignature(messageHash[:], sig, pub) {
		return ErrSignatureInvalid
	}
	return nil
}
