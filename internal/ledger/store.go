// Package ledger implements the ledger state machine: the block validator
// (check_next_block), the block proposer, the atomic append operation, and
// state-path construction, all owned by a single Ledger facade.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klingon-tech/klingnet-ledger/internal/storage"
	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// Key prefixes for the stores' persistent layout. Each store gets its own
// PrefixDB namespace; within a namespace, a short tag prefixes the key so
// primary records and side indexes never collide.
const (
	tagBlockByHash     = "b/"  // block hash -> block
	tagHeightToHash    = "h/"  // height (8 bytes BE) -> block hash
	tagTxIDToBlockHash = "tb/" // transaction ID -> block hash

	tagTxByID          = "t/"  // transaction ID -> transaction
	tagTransitionToTx  = "tt/" // transition ID -> transaction ID

	tagTransitionByID      = "r/"   // transition ID -> transition (JSON)
	tagCommitmentToTransit = "rc/"  // commitment -> transition ID
	tagSerialNumberSpent   = "sn/"  // serial number -> presence marker
	tagTagSpent            = "tg/"  // input tag -> presence marker
	tagNonceUsed           = "no/"  // output nonce -> presence marker
	tagTPKUsed             = "tpk/" // transition public key -> presence marker
	tagOutputIDUsed        = "oid/" // output ID -> presence marker

	tagProgramExists = "p/" // program ID -> presence marker
)

func heightKey(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

// batchWriter is satisfied by both storage.DB and storage.Batch. Every
// store's Insert writes through one, so the same insertion logic can
// either apply directly (mempool-style immediate writes) or queue into a
// shared storage.Batch for the ledger's atomic append (§4.4).
type batchWriter interface {
	Put(key, value []byte) error
}

// BlockStore persists blocks, indexed by hash, with side indexes from
// height to hash and from transaction ID to the block that contains it.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore wraps db (expected to be a PrefixDB namespaced to this store).
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// Insert stores blk, indexed by hash, height, and each contained
// transaction ID. Returns ErrDuplicate-wrapped error if the hash or height
// is already present — callers are expected to have already checked this
// via ContainsBlockHash/ContainsBlockHeight, so this is a defensive check.
func (s *BlockStore) Insert(blk *block.Block) error {
	return s.insert(s.db, blk)
}

// InsertBatch is Insert, but queues its writes into b instead of writing
// directly, for use inside the ledger's atomic append batch.
func (s *BlockStore) InsertBatch(b storage.Batch, blk *block.Block) error {
	return s.insert(b, blk)
}

func (s *BlockStore) insert(w batchWriter, blk *block.Block) error {
	hash := blk.Hash()
	if ok, _ := s.db.Has(append([]byte(tagBlockByHash), hash[:]...)); ok {
		return fmt.Errorf("block %s: %w", hash, ErrDuplicate)
	}
	if ok, _ := s.db.Has(append([]byte(tagHeightToHash), heightKey(blk.Height())...)); ok {
		return fmt.Errorf("block height %d: %w", blk.Height(), ErrDuplicate)
	}

	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	if err := w.Put(append([]byte(tagBlockByHash), hash[:]...), data); err != nil {
		return err
	}
	if err := w.Put(append([]byte(tagHeightToHash), heightKey(blk.Height())...), hash[:]); err != nil {
		return err
	}
	for _, txID := range blk.TransactionIDs() {
		if err := w.Put(append([]byte(tagTxIDToBlockHash), txID[:]...), hash[:]); err != nil {
			return err
		}
	}
	return nil
}

// GetBlock returns the block stored under hash.
func (s *BlockStore) GetBlock(hash types.Hash) (*block.Block, error) {
	data, err := s.db.Get(append([]byte(tagBlockByHash), hash[:]...))
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", hash, ErrMissing)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	return &blk, nil
}

// FindBlockHash returns the hash of the block containing txID.
func (s *BlockStore) FindBlockHash(txID types.Hash) (types.Hash, error) {
	data, err := s.db.Get(append([]byte(tagTxIDToBlockHash), txID[:]...))
	if err != nil {
		return types.Hash{}, fmt.Errorf("transaction %s: %w", txID, ErrMissing)
	}
	var h types.Hash
	copy(h[:], data)
	return h, nil
}

// ContainsBlockHash reports whether a block with this hash is stored.
func (s *BlockStore) ContainsBlockHash(hash types.Hash) bool {
	ok, _ := s.db.Has(append([]byte(tagBlockByHash), hash[:]...))
	return ok
}

// ContainsBlockHeight reports whether a block at this height is stored.
func (s *BlockStore) ContainsBlockHeight(height uint64) bool {
	ok, _ := s.db.Has(append([]byte(tagHeightToHash), heightKey(height)...))
	return ok
}

// HashAtHeight returns the block hash stored at height.
func (s *BlockStore) HashAtHeight(height uint64) (types.Hash, error) {
	data, err := s.db.Get(append([]byte(tagHeightToHash), heightKey(height)...))
	if err != nil {
		return types.Hash{}, fmt.Errorf("height %d: %w", height, ErrMissing)
	}
	var h types.Hash
	copy(h[:], data)
	return h, nil
}

// TransactionStore persists transactions, indexed by ID, with a side
// index from transition ID back to the owning transaction.
type TransactionStore struct {
	db storage.DB
}

// NewTransactionStore wraps db.
func NewTransactionStore(db storage.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Insert stores tx, indexed by ID and by each of its transition IDs.
func (s *TransactionStore) Insert(tx *transaction.Transaction) error {
	return s.insert(s.db, tx)
}

// InsertBatch is Insert, but queues its writes into b.
func (s *TransactionStore) InsertBatch(b storage.Batch, tx *transaction.Transaction) error {
	return s.insert(b, tx)
}

func (s *TransactionStore) insert(w batchWriter, tx *transaction.Transaction) error {
	if ok, _ := s.db.Has(append([]byte(tagTxByID), tx.ID[:]...)); ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrDuplicate)
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	if err := w.Put(append([]byte(tagTxByID), tx.ID[:]...), data); err != nil {
		return err
	}
	for _, tid := range tx.TransitionIDs() {
		if err := w.Put(append([]byte(tagTransitionToTx), tid[:]...), tx.ID[:]); err != nil {
			return err
		}
	}
	return nil
}

// GetTransaction returns the transaction stored under txID.
func (s *TransactionStore) GetTransaction(txID types.Hash) (*transaction.Transaction, error) {
	data, err := s.db.Get(append([]byte(tagTxByID), txID[:]...))
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txID, ErrMissing)
	}
	var tx transaction.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// FindTransactionID returns the ID of the transaction that owns transitionID.
func (s *TransactionStore) FindTransactionID(transitionID types.Hash) (types.Hash, error) {
	data, err := s.db.Get(append([]byte(tagTransitionToTx), transitionID[:]...))
	if err != nil {
		return types.Hash{}, fmt.Errorf("transition %s: %w", transitionID, ErrMissing)
	}
	var id types.Hash
	copy(id[:], data)
	return id, nil
}

// ContainsTransactionID reports whether txID is stored.
func (s *TransactionStore) ContainsTransactionID(txID types.Hash) bool {
	ok, _ := s.db.Has(append([]byte(tagTxByID), txID[:]...))
	return ok
}

// TransitionStore persists individual transitions, indexed by ID, with a
// side index from output commitment to the owning transition.
type TransitionStore struct {
	db storage.DB
}

// NewTransitionStore wraps db.
func NewTransitionStore(db storage.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

// Insert stores t, indexed by ID and by each output commitment it produces,
// and records its spent serial numbers, tags, output nonces, output IDs,
// and transition public key in their own presence indexes so the ledger can
// enforce global uniqueness (I2) over all of them.
func (s *TransitionStore) Insert(t *transaction.Transition) error {
	return s.insert(s.db, t)
}

// InsertBatch is Insert, but queues its writes into b.
func (s *TransitionStore) InsertBatch(b storage.Batch, t *transaction.Transition) error {
	return s.insert(b, t)
}

func (s *TransitionStore) insert(w batchWriter, t *transaction.Transition) error {
	if ok, _ := s.db.Has(append([]byte(tagTransitionByID), t.ID[:]...)); ok {
		return fmt.Errorf("transition %s: %w", t.ID, ErrDuplicate)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}
	if err := w.Put(append([]byte(tagTransitionByID), t.ID[:]...), data); err != nil {
		return err
	}
	for _, cm := range t.OutputCommitments() {
		if err := w.Put(append([]byte(tagCommitmentToTransit), cm[:]...), t.ID[:]); err != nil {
			return err
		}
	}
	for _, sn := range t.SerialNumbers() {
		if err := w.Put(append([]byte(tagSerialNumberSpent), sn[:]...), []byte{1}); err != nil {
			return err
		}
	}
	for _, tag := range t.Tags() {
		if err := w.Put(append([]byte(tagTagSpent), tag[:]...), []byte{1}); err != nil {
			return err
		}
	}
	for _, o := range t.Outputs {
		if err := w.Put(append([]byte(tagNonceUsed), o.Nonce[:]...), []byte{1}); err != nil {
			return err
		}
		if err := w.Put(append([]byte(tagOutputIDUsed), o.OutputID[:]...), []byte{1}); err != nil {
			return err
		}
	}
	if err := w.Put(append([]byte(tagTPKUsed), t.TPK[:]...), []byte{1}); err != nil {
		return err
	}
	return nil
}

// ContainsSerialNumber reports whether sn has already been spent.
func (s *TransitionStore) ContainsSerialNumber(sn types.SerialNumber) bool {
	ok, _ := s.db.Has(append([]byte(tagSerialNumberSpent), sn[:]...))
	return ok
}

// ContainsTag reports whether tag has already been spent (I2: the tag
// domain is indexed independently of the serial number it accompanies).
func (s *TransitionStore) ContainsTag(tag types.Tag) bool {
	ok, _ := s.db.Has(append([]byte(tagTagSpent), tag[:]...))
	return ok
}

// ContainsNonce reports whether nonce has already been used by a recorded output.
func (s *TransitionStore) ContainsNonce(nonce types.Field) bool {
	ok, _ := s.db.Has(append([]byte(tagNonceUsed), nonce[:]...))
	return ok
}

// ContainsOutputID reports whether oid has already been recorded by a
// stored output (P2: no two accepted blocks may reuse the same output ID).
func (s *TransitionStore) ContainsOutputID(oid types.OutputID) bool {
	ok, _ := s.db.Has(append([]byte(tagOutputIDUsed), oid[:]...))
	return ok
}

// ContainsTPK reports whether tpk has already been used by a recorded transition.
func (s *TransitionStore) ContainsTPK(tpk types.TransitionPublicKey) bool {
	ok, _ := s.db.Has(append([]byte(tagTPKUsed), tpk[:]...))
	return ok
}

// GetTransition returns the transition stored under id.
func (s *TransitionStore) GetTransition(id types.Hash) (*transaction.Transition, error) {
	data, err := s.db.Get(append([]byte(tagTransitionByID), id[:]...))
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", id, ErrMissing)
	}
	var t transaction.Transition
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal transition: %w", err)
	}
	return &t, nil
}

// FindTransitionID returns the ID of the transition that produced commitment.
func (s *TransitionStore) FindTransitionID(commitment types.Commitment) (types.Hash, error) {
	data, err := s.db.Get(append([]byte(tagCommitmentToTransit), commitment[:]...))
	if err != nil {
		return types.Hash{}, fmt.Errorf("commitment %s: %w", commitment, ErrMissing)
	}
	var id types.Hash
	copy(id[:], data)
	return id, nil
}

// ContainsCommitment reports whether commitment has been indexed.
func (s *TransitionStore) ContainsCommitment(commitment types.Commitment) bool {
	ok, _ := s.db.Has(append([]byte(tagCommitmentToTransit), commitment[:]...))
	return ok
}

// ProgramStore tracks which program IDs have been deployed.
type ProgramStore struct {
	db storage.DB
}

// NewProgramStore wraps db.
func NewProgramStore(db storage.DB) *ProgramStore {
	return &ProgramStore{db: db}
}

// Insert records pid as deployed.
func (s *ProgramStore) Insert(pid types.ProgramID) error {
	return s.insert(s.db, pid)
}

// InsertBatch is Insert, but queues its write into b.
func (s *ProgramStore) InsertBatch(b storage.Batch, pid types.ProgramID) error {
	return s.insert(b, pid)
}

func (s *ProgramStore) insert(w batchWriter, pid types.ProgramID) error {
	if ok, _ := s.db.Has(append([]byte(tagProgramExists), pid[:]...)); ok {
		return fmt.Errorf("program %s: %w", pid, ErrDuplicate)
	}
	return w.Put(append([]byte(tagProgramExists), pid[:]...), []byte{1})
}

// ContainsProgramID reports whether pid has been deployed.
func (s *ProgramStore) ContainsProgramID(pid types.ProgramID) bool {
	ok, _ := s.db.Has(append([]byte(tagProgramExists), pid[:]...))
	return ok
}
