// Package mempool holds the two pending-entry pools the ledger draws from
// when proposing a block: the transaction pool and the prover-solution
// pool. Both preserve insertion order so block proposal is reproducible.
package mempool

import (
	"errors"
	"sync"

	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// ErrAlreadyInPool is returned when a transaction ID is already present.
var ErrAlreadyInPool = errors.New("mempool: transaction already in pool")

// TransactionPool is an insertion-order-preserving set of pending
// transactions, keyed by transaction ID. It mirrors the shape of an
// ordered map: a slice carries iteration order, a parallel map gives O(1)
// membership and lookup.
type TransactionPool struct {
	mu    sync.RWMutex
	order []types.Hash
	byID  map[types.Hash]*transaction.Transaction
}

// NewTransactionPool returns an empty transaction pool.
func NewTransactionPool() *TransactionPool {
	return &TransactionPool{byID: make(map[types.Hash]*transaction.Transaction)}
}

// Insert adds tx to the pool if its ID isn't already present. Admission
// against current ledger state (check_transaction) is the caller's
// responsibility — the pool itself only enforces uniqueness and ordering.
func (p *TransactionPool) Insert(tx *transaction.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[tx.ID]; ok {
		return ErrAlreadyInPool
	}
	p.byID[tx.ID] = tx
	p.order = append(p.order, tx.ID)
	return nil
}

// Remove drops a transaction by ID, if present.
func (p *TransactionPool) Remove(id types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[id]; !ok {
		return
	}
	delete(p.byID, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether id is currently pooled.
func (p *TransactionPool) Contains(id types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byID[id]
	return ok
}

// Get returns the pooled transaction for id, if present.
func (p *TransactionPool) Get(id types.Hash) (*transaction.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.byID[id]
	return tx, ok
}

// Len returns the number of pooled transactions.
func (p *TransactionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Ordered returns every pooled transaction in insertion order. The result
// is a fresh snapshot safe to range over without holding the pool's lock.
func (p *TransactionPool) Ordered() []*transaction.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*transaction.Transaction, len(p.order))
	for i, id := range p.order {
		out[i] = p.byID[id]
	}
	return out
}

// RemoveAll drops every transaction whose ID is in ids, used after a block
// commits to purge the transactions it consumed.
func (p *TransactionPool) RemoveAll(ids []types.Hash) {
	for _, id := range ids {
		p.Remove(id)
	}
}
