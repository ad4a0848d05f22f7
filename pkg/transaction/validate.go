package transaction

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

var (
	ErrNilTransaction   = errors.New("transaction: nil transaction")
	ErrUnknownKind      = errors.New("transaction: unknown kind")
	ErrMissingDeploy    = errors.New("transaction: deploy variant missing payload")
	ErrMissingExecute   = errors.New("transaction: execute variant missing payload")
	ErrEmptyExecute     = errors.New("transaction: execute has no transitions")
	ErrBadTransactionID = errors.New("transaction: ID does not match payload hash")
	ErrEmptyProgramID   = errors.New("transaction: empty program ID")
	ErrEmptyFunction    = errors.New("transaction: empty transition function name")
	ErrAmbiguousInput   = errors.New("transaction: input is neither a record nor a value")
)

// Validate checks structural well-formedness: the transaction is one of the
// two known variants, every payload is present, transitions reference a
// function, and the declared ID matches the recomputed content hash.
//
// Validate does not check program semantics, fee sufficiency against ledger
// state, or duplicate serial numbers against the chain — those belong to
// internal/vm and internal/ledger, which see the rest of the chain.
func (tx *Transaction) Validate() error {
	if tx == nil {
		return ErrNilTransaction
	}

	switch tx.Kind {
	case KindDeploy:
		if tx.Deploy == nil {
			return ErrMissingDeploy
		}
		if tx.Deploy.ProgramID.IsZero() {
			return ErrEmptyProgramID
		}
		if err := validateTransition(&tx.Deploy.Fee); err != nil {
			return err
		}
	case KindExecute:
		if tx.Execute == nil {
			return ErrMissingExecute
		}
		if len(tx.Execute.Transitions) == 0 {
			return ErrEmptyExecute
		}
		for i := range tx.Execute.Transitions {
			if err := validateTransition(&tx.Execute.Transitions[i]); err != nil {
				return err
			}
		}
		if tx.Execute.Fee != nil {
			if err := validateTransition(tx.Execute.Fee); err != nil {
				return err
			}
		}
	default:
		return ErrUnknownKind
	}

	want, err := tx.ComputeID()
	if err != nil {
		return err
	}
	if !bytes.Equal(want[:], tx.ID[:]) {
		return ErrBadTransactionID
	}
	return nil
}

func validateTransition(t *Transition) error {
	if t.ProgramID.IsZero() {
		return ErrEmptyProgramID
	}
	if t.Function == "" {
		return ErrEmptyFunction
	}
	for _, in := range t.Inputs {
		if in.IsRecord() && len(in.Value) > 0 {
			return ErrAmbiguousInput
		}
	}
	return nil
}

// ComputeID recomputes the content-addressed transaction ID from its
// canonical JSON encoding with the ID field cleared. Callers constructing a
// transaction (the mempool's admission tests, the testnet harness) use this
// to stamp the correct ID before submitting it; Validate recomputes the same
// value to check it wasn't tampered with.
func (tx *Transaction) ComputeID() (types.Hash, error) {
	clone := *tx
	clone.ID = types.Hash{}
	b, err := json.Marshal(&clone)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(b), nil
}
