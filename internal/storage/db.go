// Package storage provides database abstractions.
package storage

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch accumulates Put/Delete operations and applies them atomically on
// Commit. A block append touches several stores at once (blocks,
// transactions, transitions, programs, and their side indexes); Batch lets
// the ledger facade write all of them as one atomic unit so a crash
// mid-append can never leave the stores inconsistent with each other.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by a DB that can produce a Batch.
type Batcher interface {
	NewBatch() Batch
}
