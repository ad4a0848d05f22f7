package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klingon-tech/klingnet-ledger/pkg/block"
	"github.com/klingon-tech/klingnet-ledger/pkg/coinbase"
	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

// =============================================================================
// Genesis: immutable chain identity and the block-zero configuration.
// This MUST match across all nodes on a network or consensus breaks.
// =============================================================================

// ConstantsOverride lets a non-mainnet network relax the coinbase puzzle's
// otherwise-fixed constants (smaller epochs, easier targets) so a devnet
// can produce blocks quickly without touching the mainnet constants in
// pkg/coinbase.
type ConstantsOverride struct {
	NumBlocksPerEpoch      uint64 `json:"num_blocks_per_epoch,omitempty"`
	GenesisCoinbaseTarget  uint64 `json:"genesis_coinbase_target,omitempty"`
	GenesisProofTarget     uint64 `json:"genesis_proof_target,omitempty"`
	CoinbasePuzzleDegree   uint64 `json:"coinbase_puzzle_degree,omitempty"`
	AnchorTime             int64  `json:"anchor_time,omitempty"`
}

// EpochBlocks returns the effective blocks-per-epoch: the override if set,
// otherwise the compiled-in constant.
func (c ConstantsOverride) EpochBlocks() uint64 {
	if c.NumBlocksPerEpoch > 0 {
		return c.NumBlocksPerEpoch
	}
	return coinbase.NumBlocksPerEpoch
}

// PuzzleDegree returns the effective coinbase puzzle degree.
func (c ConstantsOverride) PuzzleDegree() uint64 {
	if c.CoinbasePuzzleDegree > 0 {
		return c.CoinbasePuzzleDegree
	}
	return coinbase.CoinbasePuzzleDegree
}

// Validator names one member of the genesis validator set: an address and
// its secp256k1 public key, ordered the same way the ledger's validator
// set iterates (insertion order).
type Validator struct {
	Address   types.Address `json:"address"`
	PublicKey []byte        `json:"public_key"`
}

// Genesis holds everything a node needs to bootstrap a fresh ledger:
// the network identity, the initial validator set, the genesis block
// itself, and any constants overrides for non-mainnet networks.
type Genesis struct {
	NetworkID uint16 `json:"network_id"`

	// Validators is the genesis validator set, in insertion order.
	Validators []Validator `json:"validators"`

	// GenesisBlock is the fully-formed block at height 0. Its
	// PreviousHash is the zero hash and it carries no transactions or
	// coinbase proof (§ genesis predicate: height == 0 implies
	// block.is_genesis).
	GenesisBlock *block.Block `json:"genesis_block"`

	// ConstantsOverride relaxes coinbase puzzle constants for non-mainnet
	// networks. Zero value means "use the compiled-in mainnet constants".
	ConstantsOverride ConstantsOverride `json:"constants_override,omitempty"`
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// mainnetValidatorPubKeyHex is the compressed secp256k1 public key of the
// single mainnet launch validator.
const mainnetValidatorPubKeyHex = "03cba4d0ee4c55f5ea620393a6e6e9dafe959bfa6ddff964221126a3e41ad0487"

// mainnetValidatorAddress is the bech32 address corresponding to
// mainnetValidatorPubKeyHex.
const mainnetValidatorAddress = "kgx13uayfwq9djh7cd5dagxtuzk3mx7r7sc9xv4h52"

// devnetValidatorPubKeyHex and devnetValidatorAddress are derived from the
// well-known BIP-39 test mnemonic (DO NOT use on mainnet):
//
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon art
const (
	devnetValidatorPubKeyHex = "030bef68f8657df88098a0546da1712c88b459788bea1a6bbe964004166a25144f"
	devnetValidatorAddress   = "tkgx13uayfwq9djh7cd5dagxtuzk3mx7r7sc9xv4h52"
)

func genesisHeader(networkID uint16, coinbaseTarget, proofTarget uint64) *block.Header {
	return &block.Header{
		StateRoot:                types.Hash{},
		TransactionsRoot:         types.Hash{},
		CoinbaseAccumulatorPoint: types.Field{},
		Metadata: block.Metadata{
			NetworkID:      networkID,
			Round:          0,
			Height:         0,
			CoinbaseTarget: coinbaseTarget,
			ProofTarget:    proofTarget,
			Timestamp:      coinbase.GenesisTimestamp,
		},
	}
}

// MainnetGenesis returns the mainnet genesis configuration: a single
// launch validator, and the compiled-in coinbase puzzle constants.
func MainnetGenesis() *Genesis {
	addr, err := types.ParseAddress(mainnetValidatorAddress)
	if err != nil {
		panic("config: invalid mainnet validator address: " + err.Error())
	}
	pub := mustHexDecode(mainnetValidatorPubKeyHex)

	header := genesisHeader(mainnetNetworkID, coinbase.GenesisCoinbaseTarget, coinbase.GenesisProofTarget)
	genesisBlock := block.NewBlock(types.Hash{}, header, nil, nil)

	return &Genesis{
		NetworkID: mainnetNetworkID,
		Validators: []Validator{
			{Address: addr, PublicKey: pub},
		},
		GenesisBlock: genesisBlock,
	}
}

// DevnetGenesis returns a development-network genesis: the well-known test
// validator, and a shorter epoch / easier target so a local node can
// exercise coinbase-puzzle solving quickly.
func DevnetGenesis() *Genesis {
	addr, err := types.ParseAddress(devnetValidatorAddress)
	if err != nil {
		panic("config: invalid devnet validator address: " + err.Error())
	}
	pub := mustHexDecode(devnetValidatorPubKeyHex)

	override := ConstantsOverride{
		NumBlocksPerEpoch:    16,
		GenesisCoinbaseTarget: 15,
		GenesisProofTarget:    1,
		CoinbasePuzzleDegree:  63,
		AnchorTime:            2,
	}

	header := genesisHeader(devnetNetworkID, override.GenesisCoinbaseTarget, override.GenesisProofTarget)
	genesisBlock := block.NewBlock(types.Hash{}, header, nil, nil)

	return &Genesis{
		NetworkID: devnetNetworkID,
		Validators: []Validator{
			{Address: addr, PublicKey: pub},
		},
		GenesisBlock:       genesisBlock,
		ConstantsOverride:  override,
	}
}

const (
	mainnetNetworkID uint16 = 1
	devnetNetworkID  uint16 = 2
)

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return DevnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is structurally sound.
func (g *Genesis) Validate() error {
	if len(g.Validators) == 0 {
		return fmt.Errorf("genesis requires at least one validator")
	}
	seen := make(map[types.Address]bool, len(g.Validators))
	for _, v := range g.Validators {
		if v.Address.IsZero() {
			return fmt.Errorf("genesis validator has zero address")
		}
		if len(v.PublicKey) == 0 {
			return fmt.Errorf("genesis validator %s has no public key", v.Address)
		}
		if seen[v.Address] {
			return fmt.Errorf("genesis validator %s listed twice", v.Address)
		}
		seen[v.Address] = true
	}

	if g.GenesisBlock == nil {
		return fmt.Errorf("genesis block is required")
	}
	if !g.GenesisBlock.IsGenesis() {
		return fmt.Errorf("genesis block must be height 0 with no previous hash")
	}
	if len(g.GenesisBlock.Transactions) != 0 {
		return fmt.Errorf("genesis block must carry no transactions")
	}
	if g.GenesisBlock.CoinbaseProof != nil {
		return fmt.Errorf("genesis block must carry no coinbase proof")
	}

	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration, used to detect
// genesis mismatches between nodes claiming to be on the same network.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}

func mustHexDecode(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("config: invalid hex constant: " + err.Error())
	}
	return b
}
