// Package node wires together storage, the ledger facade, and a block
// proposer loop into a single runnable daemon. Networking, RPC, and
// wallet concerns are out of scope (SPEC_FULL §1) — this is the
// storage-and-consensus core a transport layer would sit on top of.
package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/klingon-tech/klingnet-ledger/config"
	klog "github.com/klingon-tech/klingnet-ledger/internal/log"
	"github.com/klingon-tech/klingnet-ledger/internal/ledger"
	"github.com/klingon-tech/klingnet-ledger/internal/storage"
	"github.com/klingon-tech/klingnet-ledger/internal/vm"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
)

// Node is a fully-initialized ledger daemon: storage, the ledger state
// machine, and (if a validator key is configured) a block-proposal loop.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db     storage.DB
	ledger *ledger.Ledger

	signer *crypto.PrivateKey

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New opens storage, bootstraps (or resumes) the ledger from genesis, and
// loads the validator signing key if validator signing is enabled. It performs all
// setup but does not start the proposer loop; call Start for that.
func New(cfg *config.Config) (*Node, error) {
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := klog.Node

	genesis := config.GenesisFor(cfg.Network)
	logger.Info().
		Uint16("network_id", genesis.NetworkID).
		Str("network", string(cfg.Network)).
		Msg("starting klingnet node")

	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, fmt.Errorf("open ledger store at %s: %w", cfg.LedgerDir(), err)
	}

	puzzle, err := coinbase.Load(genesis.ConstantsOverride.PuzzleDegree())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load coinbase puzzle: %w", err)
	}

	l, err := ledger.Open(genesis, db, puzzle, vm.NewReferenceVM())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	n := &Node{
		cfg:    cfg,
		logger: logger,
		db:     db,
		ledger: l,
		stopCh: make(chan struct{}),
	}

	if cfg.Validator.Enabled {
		signer, err := loadValidatorKey(cfg.Validator.KeyFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load validator key: %w", err)
		}
		n.signer = signer
	}

	logger.Info().
		Uint64("height", l.CurrentHeight()).
		Str("tip", l.CurrentHash().String()[:16]+"...").
		Bool("proposing", n.signer != nil && cfg.Proposer.Enabled).
		Msg("node initialized")

	return n, nil
}

// Start launches the block-proposal loop, if configured, and returns
// immediately; call Stop for graceful shutdown.
func (n *Node) Start() error {
	if n.signer != nil && n.cfg.Proposer.Enabled {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runProposer(time.Duration(coinbase.AnchorTime) * time.Second)
		}()
	}
	n.logger.Info().Msg("node started")
	return nil
}

// Stop signals the proposer loop to exit, waits for it, and closes storage.
func (n *Node) Stop() {
	close(n.stopCh)
	n.wg.Wait()
	if n.signer != nil {
		n.signer.Zero()
	}
	if n.db != nil {
		n.db.Close()
	}
	n.logger.Info().Msg("node stopped")
}

// Ledger returns the node's ledger facade.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// runProposer periodically proposes and appends a block, mirroring the
// teacher's ticker-driven mining loop, minus the PoA in-turn/backup-delay
// machinery (this ledger's validator gate is membership plus signature,
// not slot election — §4.2, §9).
func (n *Node) runProposer(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			n.logger.Info().Msg("block proposal stopped")
			return
		case <-ticker.C:
			blk, reward, err := n.ledger.ProposeNextBlock(n.signer, time.Now().Unix())
			if err != nil {
				n.logger.Error().Err(err).Msg("propose next block")
				continue
			}
			if err := n.ledger.AddNextBlock(blk); err != nil {
				n.logger.Error().Err(err).Msg("add next block")
				continue
			}
			n.logger.Info().
				Uint64("height", blk.Height()).
				Str("hash", blk.Hash().String()[:16]+"...").
				Int("transactions", len(blk.Transactions)).
				Uint64("reward_total", reward.Total).
				Msg("block proposed and appended")
		}
	}
}

// loadValidatorKey reads a raw secp256k1 private key from keyFile.
func loadValidatorKey(keyFile string) (*crypto.PrivateKey, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("validator.keyfile is required when validator.enabled is true")
	}
	data, err := readKeyFile(keyFile)
	if err != nil {
		return nil, err
	}
	return crypto.PrivateKeyFromBytes(data)
}
