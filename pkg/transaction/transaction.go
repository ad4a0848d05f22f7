// Package transaction defines the transaction and transition types accepted
// by the ledger. The VM that actually interprets program logic is external
// to this package (see internal/vm); transactions here are opaque payloads
// the ledger orders, indexes, and charges fees against.
package transaction

import (
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// Kind distinguishes the two transaction variants.
type Kind uint8

const (
	KindDeploy Kind = iota
	KindExecute
)

func (k Kind) String() string {
	if k == KindDeploy {
		return "deploy"
	}
	return "execute"
}

// Origin is a tagged union identifying where a record input's commitment
// originated. The StateRoot variant is reserved: the ledger validator always
// rejects it (§3/§7/§9 — "do not infer semantics from the variant's
// presence in the data model; it is reserved for a future feature").
type Origin struct {
	Commitment *types.Commitment `json:"commitment,omitempty"`
	StateRoot  *types.Hash       `json:"state_root,omitempty"`
}

// IsReserved reports whether this origin uses the reserved StateRoot variant.
func (o Origin) IsReserved() bool {
	return o.StateRoot != nil
}

// Input carries either a serial number (a record input, consuming a prior
// output) or a plain public value. Exactly one of the two is set. A record
// input also carries a tag (a separate uniqueness domain from the serial
// number, §2/I2) and an origin identifying the commitment it descends from.
type Input struct {
	SerialNumber types.SerialNumber `json:"serial_number,omitempty"`
	Tag          types.Tag          `json:"tag,omitempty"`
	Origin       *Origin            `json:"origin,omitempty"`
	Value        []byte             `json:"value,omitempty"`
}

// IsRecord reports whether the input consumes a record (vs. a plain value).
func (in Input) IsRecord() bool {
	return !in.SerialNumber.IsZero()
}

// Output carries a commitment to a new record, the nonce used to derive it,
// and the output's identifier.
type Output struct {
	Commitment types.Commitment `json:"commitment"`
	Nonce      types.Field      `json:"nonce"`
	OutputID   types.OutputID   `json:"output_id"`
}

// Transition is a single program-function call: it consumes Inputs and
// produces Outputs, bound together by a transition public key (TPK) and
// transition commitment (TCM) so the pair can't be replayed against a
// different transition.
type Transition struct {
	ID         types.Hash                 `json:"id"`
	ProgramID  types.ProgramID            `json:"program_id"`
	Function   string                     `json:"function"`
	TPK        types.TransitionPublicKey  `json:"tpk"`
	TCM        types.TransitionCommitment `json:"tcm"`
	Inputs     []Input                    `json:"inputs"`
	Outputs    []Output                   `json:"outputs"`
	Fee        int64                      `json:"fee"`
}

// SerialNumbers returns every record serial number this transition consumes.
func (t *Transition) SerialNumbers() []types.SerialNumber {
	out := make([]types.SerialNumber, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		if in.IsRecord() {
			out = append(out, in.SerialNumber)
		}
	}
	return out
}

// Tags returns every record input's tag, the uniqueness domain kept
// alongside (but distinct from) the serial number (§2/I2).
func (t *Transition) Tags() []types.Tag {
	out := make([]types.Tag, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		if in.IsRecord() && !in.Tag.IsZero() {
			out = append(out, in.Tag)
		}
	}
	return out
}

// Origins returns the origin of every record input that declares one.
func (t *Transition) Origins() []Origin {
	var out []Origin
	for _, in := range t.Inputs {
		if in.Origin != nil {
			out = append(out, *in.Origin)
		}
	}
	return out
}

// OutputCommitments returns every output commitment this transition produces.
func (t *Transition) OutputCommitments() []types.Commitment {
	out := make([]types.Commitment, 0, len(t.Outputs))
	for _, o := range t.Outputs {
		out = append(out, o.Commitment)
	}
	return out
}

// OutputIDs returns every output ID this transition produces.
func (t *Transition) OutputIDs() []types.OutputID {
	out := make([]types.OutputID, 0, len(t.Outputs))
	for _, o := range t.Outputs {
		out = append(out, o.OutputID)
	}
	return out
}

// Deploy deploys a new program to the ledger. Fee is a transition carrying a
// non-negative fee amount; it has no program-level inputs/outputs of its own.
type Deploy struct {
	ProgramID types.ProgramID `json:"program_id"`
	Edition   uint16          `json:"edition"`
	Owner     types.Address   `json:"owner"`
	Fee       Transition      `json:"fee"`
}

// Execute runs zero or more transitions plus an optional fee transition.
type Execute struct {
	Transitions []Transition `json:"transitions"`
	Fee         *Transition  `json:"fee,omitempty"`
}

// Transaction is a variant over Deploy and Execute.
type Transaction struct {
	ID      types.Hash `json:"id"`
	Kind    Kind       `json:"kind"`
	Deploy  *Deploy    `json:"deploy,omitempty"`
	Execute *Execute   `json:"execute,omitempty"`
}

// NewDeploy constructs a deploy transaction. The caller supplies the ID
// (the ledger recomputes and verifies it during validation).
func NewDeploy(id types.Hash, d Deploy) *Transaction {
	return &Transaction{ID: id, Kind: KindDeploy, Deploy: &d}
}

// NewExecute constructs an execute transaction.
func NewExecute(id types.Hash, e Execute) *Transaction {
	return &Transaction{ID: id, Kind: KindExecute, Execute: &e}
}

// transitions returns every transition carried by the transaction, including
// the fee transition if present.
func (tx *Transaction) transitions() []*Transition {
	switch tx.Kind {
	case KindDeploy:
		if tx.Deploy == nil {
			return nil
		}
		return []*Transition{&tx.Deploy.Fee}
	case KindExecute:
		if tx.Execute == nil {
			return nil
		}
		out := make([]*Transition, 0, len(tx.Execute.Transitions)+1)
		for i := range tx.Execute.Transitions {
			out = append(out, &tx.Execute.Transitions[i])
		}
		if tx.Execute.Fee != nil {
			out = append(out, tx.Execute.Fee)
		}
		return out
	}
	return nil
}

// SerialNumbers returns every serial number spent across all transitions.
func (tx *Transaction) SerialNumbers() []types.SerialNumber {
	var out []types.SerialNumber
	for _, t := range tx.transitions() {
		out = append(out, t.SerialNumbers()...)
	}
	return out
}

// Commitments returns every output commitment produced across all transitions.
func (tx *Transaction) Commitments() []types.Commitment {
	var out []types.Commitment
	for _, t := range tx.transitions() {
		out = append(out, t.OutputCommitments()...)
	}
	return out
}

// OutputIDs returns every output ID produced across all transitions.
func (tx *Transaction) OutputIDs() []types.OutputID {
	var out []types.OutputID
	for _, t := range tx.transitions() {
		out = append(out, t.OutputIDs()...)
	}
	return out
}

// Tags returns every record input's tag spent across all transitions.
func (tx *Transaction) Tags() []types.Tag {
	var out []types.Tag
	for _, t := range tx.transitions() {
		out = append(out, t.Tags()...)
	}
	return out
}

// Origins returns the origin of every record input across all transitions
// that declares one.
func (tx *Transaction) Origins() []Origin {
	var out []Origin
	for _, t := range tx.transitions() {
		out = append(out, t.Origins()...)
	}
	return out
}

// TransitionIDs returns the IDs of every transition carried by the transaction.
func (tx *Transaction) TransitionIDs() []types.Hash {
	ts := tx.transitions()
	out := make([]types.Hash, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

// Fee returns the total fee paid by the transaction, summed across every
// transition's fee field. For an Execute transaction with height 0 (genesis
// bootstrapping) a negative total is tolerated; everywhere else it must be
// non-negative (enforced by the ledger validator, not here).
func (tx *Transaction) Fee() int64 {
	var total int64
	for _, t := range tx.transitions() {
		total += t.Fee
	}
	return total
}

// ProgramIDs returns every program ID referenced by the transaction.
func (tx *Transaction) ProgramIDs() []types.ProgramID {
	switch tx.Kind {
	case KindDeploy:
		if tx.Deploy == nil {
			return nil
		}
		return []types.ProgramID{tx.Deploy.ProgramID}
	case KindExecute:
		if tx.Execute == nil {
			return nil
		}
		seen := make(map[types.ProgramID]struct{})
		var out []types.ProgramID
		for _, t := range tx.Execute.Transitions {
			if _, ok := seen[t.ProgramID]; !ok {
				seen[t.ProgramID] = struct{}{}
				out = append(out, t.ProgramID)
			}
		}
		return out
	}
	return nil
}
