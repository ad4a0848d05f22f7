package vm

import (
	"errors"
	"sync"

	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ErrDuplicateFinalize is returned by ReferenceVM.Finalize when a
// transaction ID or deployed program ID has already been finalized once.
var ErrDuplicateFinalize = errors.New("vm: transaction or program already finalized")

// ReferenceVM is a stand-in for the real zero-knowledge verifier named in
// the VM contract (§6): it checks structural well-formedness (no nil
// fields, a non-negative fee, a present program ID) and rejects an already
// finalized transaction ID or a redeploy of an already deployed program;
// anything else that is structurally valid passes. It tracks finalized
// transaction and program IDs so a second finalize of the same
// transaction — or a redeploy of the same program — fails, giving the
// ledger's duplicate-transaction end-to-end scenario something real to
// fail against.
type ReferenceVM struct {
	mu               sync.Mutex
	finalizedTx      map[types.Hash]bool
	deployedPrograms map[types.ProgramID]bool
}

// NewReferenceVM returns an empty ReferenceVM.
func NewReferenceVM() *ReferenceVM {
	return &ReferenceVM{
		finalizedTx:      make(map[types.Hash]bool),
		deployedPrograms: make(map[types.ProgramID]bool),
	}
}

// Verify reports whether tx is structurally well-formed: this delegates to
// transaction.Validate's structural checks already proven in pkg/transaction
// and adds the VM-level checks that package can't make on its own (fee
// sign, program existence for deploys already seen).
func (v *ReferenceVM) Verify(tx *transaction.Transaction) bool {
	if tx == nil {
		return false
	}
	if err := tx.Validate(); err != nil {
		return false
	}
	if tx.Fee() < 0 {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalizedTx[tx.ID] {
		return false
	}
	if tx.Kind == transaction.KindDeploy && tx.Deploy != nil && v.deployedPrograms[tx.Deploy.ProgramID] {
		return false
	}
	return true
}

// Finalize marks tx (and, for a deploy, its program ID) as committed.
// Calling Finalize twice for the same transaction ID, or deploying the
// same program ID twice, returns ErrDuplicateFinalize.
func (v *ReferenceVM) Finalize(tx *transaction.Transaction) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.finalizedTx[tx.ID] {
		return ErrDuplicateFinalize
	}
	if tx.Deploy != nil && v.deployedPrograms[tx.Deploy.ProgramID] {
		return ErrDuplicateFinalize
	}

	v.finalizedTx[tx.ID] = true
	if tx.Deploy != nil {
		v.deployedPrograms[tx.Deploy.ProgramID] = true
	}
	return nil
}
