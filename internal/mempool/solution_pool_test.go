package mempool

import (
	"testing"

	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

func mustSolution(addrByte byte, nonce uint64) coinbase.PartialSolution {
	var addr types.Address
	addr[0] = addrByte
	return coinbase.PartialSolution{Address: addr, Nonce: nonce}
}

func TestSolutionPool_InsertAndOrder(t *testing.T) {
	p := NewSolutionPool(0)
	s1 := mustSolution(1, 10)
	s2 := mustSolution(2, 20)

	if err := p.Insert(s1); err != nil {
		t.Fatalf("Insert s1: %v", err)
	}
	if err := p.Insert(s2); err != nil {
		t.Fatalf("Insert s2: %v", err)
	}

	ordered := p.Ordered()
	if len(ordered) != 2 {
		t.Fatalf("Ordered() len = %d, want 2", len(ordered))
	}
	if ordered[0].Address != s1.Address || ordered[1].Address != s2.Address {
		t.Error("Ordered() did not preserve insertion order")
	}
}

func TestSolutionPool_DuplicateRejected(t *testing.T) {
	p := NewSolutionPool(0)
	s := mustSolution(1, 10)
	if err := p.Insert(s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := p.Insert(s); err != ErrAlreadyPooled {
		t.Errorf("second Insert err = %v, want ErrAlreadyPooled", err)
	}
}

func TestSolutionPool_AdvanceEpochClears(t *testing.T) {
	p := NewSolutionPool(0)
	p.Insert(mustSolution(1, 10))

	if !p.AdvanceEpoch(1) {
		t.Error("AdvanceEpoch to a new epoch should report true")
	}
	if p.Len() != 0 {
		t.Errorf("Len() after AdvanceEpoch = %d, want 0", p.Len())
	}
	if p.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1", p.Epoch())
	}

	if p.AdvanceEpoch(1) {
		t.Error("AdvanceEpoch to the same epoch should report false")
	}
}
