package consensus

import (
	"sync"
	"time"

	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// LivenessStats records one validator's observed production behavior.
// This is observational bookkeeping only: it never changes which blocks are
// accepted, it just gives an operator visibility into who is (or isn't)
// producing blocks.
type LivenessStats struct {
	BlocksProduced uint64
	LastSeen       time.Time
	MissedRounds   uint64
}

// ValidatorTracker accumulates LivenessStats per validator address.
type ValidatorTracker struct {
	mu    sync.Mutex
	stats map[types.Address]*LivenessStats
}

// NewValidatorTracker returns an empty tracker.
func NewValidatorTracker() *ValidatorTracker {
	return &ValidatorTracker{stats: make(map[types.Address]*LivenessStats)}
}

// RecordBlock marks addr as having produced a block at the given time.
func (t *ValidatorTracker) RecordBlock(addr types.Address, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.entry(addr)
	s.BlocksProduced++
	s.LastSeen = at
}

// RecordMissedRound marks addr as having missed its expected production round.
func (t *ValidatorTracker) RecordMissedRound(addr types.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(addr).MissedRounds++
}

// Stats returns a copy of addr's liveness stats.
func (t *ValidatorTracker) Stats(addr types.Address) LivenessStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.stats[addr]; ok {
		return *s
	}
	return LivenessStats{}
}

func (t *ValidatorTracker) entry(addr types.Address) *LivenessStats {
	s, ok := t.stats[addr]
	if !ok {
		s = &LivenessStats{}
		t.stats[addr] = s
	}
	return s
}
