package transaction

import (
	"errors"
	"testing"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

func testDeployTx(t *testing.T) *Transaction {
	t.Helper()
	pid := types.ProgramID(crypto.Hash([]byte("counter.aleo")))
	tx := NewDeploy(types.Hash{}, Deploy{
		ProgramID: pid,
		Fee: Transition{
			ID:        crypto.Hash([]byte("counter.aleo/fee")),
			ProgramID: pid,
			Function:  "fee",
		},
	})
	id, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	tx.ID = id
	return tx
}

func testExecuteTx(t *testing.T) *Transaction {
	t.Helper()
	pid := types.ProgramID(crypto.Hash([]byte("credits.aleo")))
	tx := NewExecute(types.Hash{}, Execute{
		Transitions: []Transition{
			{
				ID:        crypto.Hash([]byte("transfer")),
				ProgramID: pid,
				Function:  "transfer",
				Inputs: []Input{
					{SerialNumber: types.SerialNumber(crypto.Hash([]byte("sn-1")))},
				},
				Outputs: []Output{
					{Commitment: types.Commitment(crypto.Hash([]byte("cm-1")))},
				},
			},
		},
	})
	id, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	tx.ID = id
	return tx
}

func TestValidate_DeployAccepted(t *testing.T) {
	tx := testDeployTx(t)
	if err := tx.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_ExecuteAccepted(t *testing.T) {
	tx := testExecuteTx(t)
	if err := tx.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_NilTransaction(t *testing.T) {
	var tx *Transaction
	if err := tx.Validate(); !errors.Is(err, ErrNilTransaction) {
		t.Errorf("err = %v, want ErrNilTransaction", err)
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	tx := testDeployTx(t)
	tx.Kind = Kind(99)
	if err := tx.Validate(); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestValidate_MissingDeployPayload(t *testing.T) {
	tx := &Transaction{Kind: KindDeploy}
	if err := tx.Validate(); !errors.Is(err, ErrMissingDeploy) {
		t.Errorf("err = %v, want ErrMissingDeploy", err)
	}
}

func TestValidate_EmptyProgramID(t *testing.T) {
	tx := testDeployTx(t)
	tx.Deploy.ProgramID = types.ProgramID{}
	if err := tx.Validate(); !errors.Is(err, ErrEmptyProgramID) {
		t.Errorf("err = %v, want ErrEmptyProgramID", err)
	}
}

func TestValidate_EmptyExecute(t *testing.T) {
	tx := &Transaction{Kind: KindExecute, Execute: &Execute{}}
	if err := tx.Validate(); !errors.Is(err, ErrEmptyExecute) {
		t.Errorf("err = %v, want ErrEmptyExecute", err)
	}
}

func TestValidate_EmptyFunction(t *testing.T) {
	tx := testExecuteTx(t)
	tx.Execute.Transitions[0].Function = ""
	if err := tx.Validate(); !errors.Is(err, ErrEmptyFunction) {
		t.Errorf("err = %v, want ErrEmptyFunction", err)
	}
}

func TestValidate_AmbiguousInput(t *testing.T) {
	tx := testExecuteTx(t)
	tx.Execute.Transitions[0].Inputs[0].Value = []byte("also a value")
	if err := tx.Validate(); !errors.Is(err, ErrAmbiguousInput) {
		t.Errorf("err = %v, want ErrAmbiguousInput", err)
	}
}

func TestValidate_TamperedIDRejected(t *testing.T) {
	tx := testDeployTx(t)
	tx.ID[0] ^= 0xFF
	if err := tx.Validate(); !errors.Is(err, ErrBadTransactionID) {
		t.Errorf("err = %v, want ErrBadTransactionID", err)
	}
}

func TestComputeID_Deterministic(t *testing.T) {
	tx := testDeployTx(t)
	first, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID (first): %v", err)
	}
	second, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID (second): %v", err)
	}
	if first != second {
		t.Error("ComputeID should be deterministic for the same payload")
	}
}

func TestComputeID_IgnoresExistingID(t *testing.T) {
	tx := testDeployTx(t)
	withZeroID, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}

	tampered := *tx
	tampered.ID = types.Hash{0xAB, 0xCD}
	withStaleID, err := tampered.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	if withZeroID != withStaleID {
		t.Error("ComputeID should ignore the transaction's current ID field")
	}
}

func TestSerialNumbersAndCommitments(t *testing.T) {
	tx := testExecuteTx(t)
	sns := tx.SerialNumbers()
	if len(sns) != 1 {
		t.Fatalf("len(SerialNumbers) = %d, want 1", len(sns))
	}
	cms := tx.Commitments()
	if len(cms) != 1 {
		t.Fatalf("len(Commitments) = %d, want 1", len(cms))
	}
}

func TestTransitionIDs(t *testing.T) {
	deployTx := testDeployTx(t)
	ids := deployTx.TransitionIDs()
	if len(ids) != 1 {
		t.Fatalf("deploy: len(TransitionIDs) = %d, want 1 (the fee transition)", len(ids))
	}
	if ids[0] != deployTx.Deploy.Fee.ID {
		t.Error("deploy's single transition ID should be the fee transition's ID")
	}
}

func TestProgramIDs_ExecuteDeduplicates(t *testing.T) {
	tx := testExecuteTx(t)
	tx.Execute.Transitions = append(tx.Execute.Transitions, tx.Execute.Transitions[0])
	ids := tx.ProgramIDs()
	if len(ids) != 1 {
		t.Errorf("len(ProgramIDs) = %d, want 1 (deduplicated)", len(ids))
	}
}

func TestFee_SumsAcrossTransitions(t *testing.T) {
	pid := types.ProgramID(crypto.Hash([]byte("credits.aleo")))
	feeTransition := Transition{
		ID:        crypto.Hash([]byte("fee")),
		ProgramID: pid,
		Function:  "fee",
		Fee:       5,
	}
	tx := NewExecute(types.Hash{}, Execute{
		Transitions: []Transition{
			{ID: crypto.Hash([]byte("t1")), ProgramID: pid, Function: "transfer", Fee: 3},
		},
		Fee: &feeTransition,
	})
	if got := tx.Fee(); got != 8 {
		t.Errorf("Fee() = %d, want 8", got)
	}
}
