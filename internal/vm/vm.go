// Package vm defines the ledger's VM contract: verify(tx) -> bool and
// finalize(tx) -> error. The ledger treats program execution and
// zero-knowledge proof verification as opaque; it only needs something
// implementing this interface to gate admission and apply effects.
package vm

import "github.com/klingon-tech/klingnet-ledger/pkg/transaction"

// VM is the external interface the ledger drives transactions through.
// Verify is read-only and may run concurrently over many transactions;
// Finalize mutates VM-internal state (program deployments, nullifier sets)
// and must only be called once per transaction, during block append.
type VM interface {
	// Verify reports whether tx is valid against the VM's current state
	// (the program it calls, input/output proofs, fee sufficiency). It
	// must not mutate state.
	Verify(tx *transaction.Transaction) bool

	// Finalize applies tx's effects. Called once, in order, for every
	// transaction in a block being appended. An error here aborts the
	// whole append (§4.4: "VM finalize errors during append abort the
	// append").
	Finalize(tx *transaction.Transaction) error
}
