package mempool

import (
	"errors"
	"sync"

	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ErrAlreadyPooled is returned when a solution with the same (address,
// nonce) identity is already in the pool.
var ErrAlreadyPooled = errors.New("mempool: solution already in pool")

// solutionKey identifies a partial solution by the prover address and
// nonce it was produced from — the pair the coinbase puzzle's
// HashToFieldPoint derives the evaluation point from, so two solutions
// sharing a key would open the epoch polynomial at the same point anyway.
type solutionKey struct {
	address types.Address
	nonce   uint64
}

// SolutionPool is an insertion-order-preserving set of pending prover
// solutions, scoped to a single epoch. The ledger clears it whenever the
// epoch number advances (§4 invariant I6).
type SolutionPool struct {
	mu    sync.RWMutex
	epoch uint64
	order []solutionKey
	byKey map[solutionKey]coinbase.PartialSolution
}

// NewSolutionPool returns an empty solution pool scoped to epoch.
func NewSolutionPool(epoch uint64) *SolutionPool {
	return &SolutionPool{
		epoch: epoch,
		byKey: make(map[solutionKey]coinbase.PartialSolution),
	}
}

// Epoch returns the epoch number this pool is currently scoped to.
func (p *SolutionPool) Epoch() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.epoch
}

// Insert adds sol to the pool if its (address, nonce) identity isn't
// already present. Verification against the puzzle's verifying key and
// the current epoch challenge is the caller's responsibility.
func (p *SolutionPool) Insert(sol coinbase.PartialSolution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := solutionKey{address: sol.Address, nonce: sol.Nonce}
	if _, ok := p.byKey[key]; ok {
		return ErrAlreadyPooled
	}
	p.byKey[key] = sol
	p.order = append(p.order, key)
	return nil
}

// Len returns the number of pooled solutions.
func (p *SolutionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Ordered returns every pooled solution in insertion order.
func (p *SolutionPool) Ordered() []coinbase.PartialSolution {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]coinbase.PartialSolution, len(p.order))
	for i, key := range p.order {
		out[i] = p.byKey[key]
	}
	return out
}

// AdvanceEpoch clears the pool and rescopes it to newEpoch, if newEpoch
// differs from the pool's current epoch. Returns true if the pool was
// cleared.
func (p *SolutionPool) AdvanceEpoch(newEpoch uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if newEpoch == p.epoch {
		return false
	}
	p.epoch = newEpoch
	p.order = nil
	p.byKey = make(map[solutionKey]coinbase.PartialSolution)
	return true
}
