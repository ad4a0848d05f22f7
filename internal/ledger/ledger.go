package ledger

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/klingon-tech/klingnet-ledger/config"
	"github.com/klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/klingon-tech/klingnet-ledger/internal/log"
	"github.com/klingon-tech/klingnet-ledger/internal/mempool"
	"github.com/klingon-tech/klingnet-ledger/internal/storage"
	"github.com/klingon-tech/klingnet-ledger/internal/vm"
	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// Namespace prefixes separating the four stores within one shared root DB.
var (
	blocksNamespace       = []byte("blocks/")
	transactionsNamespace = []byte("transactions/")
	transitionsNamespace  = []byte("transitions/")
	programsNamespace     = []byte("programs/")
)

// tip bundles the mutable chain-head state guarded by Ledger.mu.
type tip struct {
	hash   types.Hash
	height uint64
	round  uint64

	coinbaseTarget uint64
	proofTarget    uint64
	timestamp      int64
}

// Ledger is the single facade over ledger state: the block tree, the four
// content-addressed stores, the validator set and liveness tracker, the
// two mempools, the coinbase puzzle, and the external VM contract. All
// mutation (AddNextBlock, ProposeNextBlock) takes mu, and updates the tree
// and stores in place under it; ToStatePath, StateRoot and the tip/target
// accessors also take mu, while GetBlock and GetBlockByHeight read the
// block store without it.
type Ledger struct {
	mu sync.Mutex

	networkID uint16
	tip       tip

	tree *block.Tree

	db storage.DB // root store, used to open one shared write batch per append

	blocks       *BlockStore
	transactions *TransactionStore
	transitions  *TransitionStore
	programs     *ProgramStore

	validators *consensus.ValidatorSet
	liveness   *consensus.ValidatorTracker

	txPool  *mempool.TransactionPool
	solPool *mempool.SolutionPool

	puzzle       *coinbase.Puzzle
	epoch        *coinbase.EpochChallenge
	epochNumber  uint64
	epochBlocks  uint64
	anchorTime   int64
	puzzleDegree uint64

	vm vm.VM

	log zerolog.Logger
}

// Open bootstraps a Ledger from genesis configuration and a single root
// store, which Open splits into the four store namespaces itself (one
// PrefixDB per store, matching the storage layout in §6).
func Open(gen *config.Genesis, db storage.DB, puzzle *coinbase.Puzzle, vmImpl vm.VM) (*Ledger, error) {
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	addresses := make([]types.Address, len(gen.Validators))
	pubKeys := make([][]byte, len(gen.Validators))
	for i, v := range gen.Validators {
		addresses[i] = v.Address
		pubKeys[i] = v.PublicKey
	}
	validators, err := consensus.NewValidatorSet(addresses, pubKeys)
	if err != nil {
		return nil, fmt.Errorf("validator set: %w", err)
	}

	blocksDB := storage.NewPrefixDB(db, blocksNamespace)
	txDB := storage.NewPrefixDB(db, transactionsNamespace)
	transitionsDB := storage.NewPrefixDB(db, transitionsNamespace)
	programsDB := storage.NewPrefixDB(db, programsNamespace)

	l := &Ledger{
		networkID:    gen.NetworkID,
		tree:         block.NewTree(),
		db:           db,
		blocks:       NewBlockStore(blocksDB),
		transactions: NewTransactionStore(txDB),
		transitions:  NewTransitionStore(transitionsDB),
		programs:     NewProgramStore(programsDB),
		validators:   validators,
		liveness:     consensus.NewValidatorTracker(),
		txPool:       mempool.NewTransactionPool(),
		solPool:      mempool.NewSolutionPool(0),
		puzzle:       puzzle,
		epochBlocks:  gen.ConstantsOverride.EpochBlocks(),
		puzzleDegree: gen.ConstantsOverride.PuzzleDegree(),
		anchorTime:   gen.ConstantsOverride.AnchorTime,
		vm:           vmImpl,
		log:          log.Ledger,
	}
	if l.anchorTime <= 0 {
		l.anchorTime = coinbase.AnchorTime
	}

	genesisHash := gen.GenesisBlock.Hash()
	if l.blocks.ContainsBlockHash(genesisHash) {
		// Resuming an already-bootstrapped ledger: recover tip from storage.
		return l.recoverTip()
	}

	if err := l.tree.Append(genesisHash); err != nil {
		return nil, fmt.Errorf("append genesis to block tree: %w", err)
	}
	if err := l.blocks.Insert(gen.GenesisBlock); err != nil {
		return nil, fmt.Errorf("store genesis block: %w", err)
	}

	l.tip = tip{
		hash:           genesisHash,
		height:         0,
		round:          0,
		coinbaseTarget: gen.GenesisBlock.Header.Metadata.CoinbaseTarget,
		proofTarget:    gen.GenesisBlock.Header.Metadata.ProofTarget,
		timestamp:      gen.GenesisBlock.Header.Metadata.Timestamp,
	}
	l.epoch = coinbase.NewEpochChallenge(0, genesisHash)
	l.epochNumber = 0

	l.log.Info().Uint16("network_id", l.networkID).Str("genesis_hash", genesisHash.String()).Msg("ledger bootstrapped from genesis")
	return l, nil
}

// recoverTip rebuilds in-memory tip state (block tree, epoch challenge)
// from the block store after a restart. It walks height 0..N re-appending
// every stored block hash to a fresh block tree, since the tree itself is
// not separately persisted (§4.4: it is reconstructible from the blocks
// store, which is the source of truth).
func (l *Ledger) recoverTip() (*Ledger, error) {
	height := uint64(0)
	var last *block.Block
	for {
		hash, err := l.blocks.HashAtHeight(height)
		if err != nil {
			break
		}
		if err := l.tree.Append(hash); err != nil {
			return nil, fmt.Errorf("recover block tree at height %d: %w", height, err)
		}
		blk, err := l.blocks.GetBlock(hash)
		if err != nil {
			return nil, fmt.Errorf("recover block %d: %w", height, err)
		}
		last = blk
		height++
	}
	if last == nil {
		return nil, fmt.Errorf("ledger: no genesis block found during recovery")
	}

	l.tip = tip{
		hash:           last.Hash(),
		height:         last.Height(),
		round:          last.Round(),
		coinbaseTarget: last.Header.Metadata.CoinbaseTarget,
		proofTarget:    last.Header.Metadata.ProofTarget,
		timestamp:      last.Header.Metadata.Timestamp,
	}
	l.epochNumber = last.EpochNumber(l.epochBlocks)

	epochStartHeight := l.epochNumber * l.epochBlocks
	epochStartHash, err := l.blocks.HashAtHeight(epochStartHeight)
	if err != nil {
		return nil, fmt.Errorf("recover epoch start hash: %w", err)
	}
	l.epoch = coinbase.NewEpochChallenge(l.epochNumber, epochStartHash)

	l.log.Info().Uint64("height", l.tip.height).Str("tip_hash", l.tip.hash.String()).Msg("ledger recovered from storage")
	return l, nil
}

// CurrentHash returns the current tip block hash.
func (l *Ledger) CurrentHash() types.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tip.hash
}

// CurrentHeight returns the current tip height.
func (l *Ledger) CurrentHeight() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tip.height
}

// CurrentRound returns the current tip consensus round.
func (l *Ledger) CurrentRound() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tip.round
}

// CurrentEpoch returns the current epoch number and its challenge.
func (l *Ledger) CurrentEpoch() (uint64, *coinbase.EpochChallenge) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epochNumber, l.epoch
}

// CurrentTargets returns the tip's coinbase and proof targets, the values
// the next proposed block's coinbase constraints are checked against.
func (l *Ledger) CurrentTargets() (coinbaseTarget, proofTarget uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tip.coinbaseTarget, l.tip.proofTarget
}

// Puzzle returns the ledger's coinbase puzzle engine, for provers to
// generate partial solutions against the current epoch challenge.
func (l *Ledger) Puzzle() *coinbase.Puzzle {
	return l.puzzle
}

// StateRoot returns the block tree's current root (§4.5: "state_root =
// block_tree.root()").
func (l *Ledger) StateRoot() types.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.Root()
}

// GetBlock returns the block stored under hash.
func (l *Ledger) GetBlock(hash types.Hash) (*block.Block, error) {
	return l.blocks.GetBlock(hash)
}

// GetBlockByHeight returns the block stored at height.
func (l *Ledger) GetBlockByHeight(height uint64) (*block.Block, error) {
	hash, err := l.blocks.HashAtHeight(height)
	if err != nil {
		return nil, err
	}
	return l.blocks.GetBlock(hash)
}

// Validators returns the ledger's validator set.
func (l *Ledger) Validators() *consensus.ValidatorSet {
	return l.validators
}

// Liveness returns the ledger's validator liveness tracker.
func (l *Ledger) Liveness() *consensus.ValidatorTracker {
	return l.liveness
}

// TransactionPool returns the ledger's pending-transaction mempool.
func (l *Ledger) TransactionPool() *mempool.TransactionPool {
	return l.txPool
}

// SolutionPool returns the ledger's pending-partial-solution mempool.
func (l *Ledger) SolutionPool() *mempool.SolutionPool {
	return l.solPool
}
