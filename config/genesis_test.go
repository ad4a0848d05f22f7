package config

import "testing"

func TestMainnetGenesis_Valid(t *testing.T) {
	g := MainnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("mainnet genesis should be valid: %v", err)
	}
	if len(g.Validators) == 0 {
		t.Error("mainnet genesis should have at least one validator")
	}
	if !g.GenesisBlock.IsGenesis() {
		t.Error("mainnet genesis block should satisfy IsGenesis()")
	}
}

func TestDevnetGenesis_Valid(t *testing.T) {
	g := DevnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("devnet genesis should be valid: %v", err)
	}
	if g.ConstantsOverride.EpochBlocks() != 16 {
		t.Errorf("devnet epoch blocks = %d, want 16", g.ConstantsOverride.EpochBlocks())
	}
}

func TestGenesis_Validate_NoValidators(t *testing.T) {
	g := MainnetGenesis()
	g.Validators = nil
	if err := g.Validate(); err == nil {
		t.Error("genesis with no validators should be invalid")
	}
}

func TestGenesis_Validate_DuplicateValidator(t *testing.T) {
	g := MainnetGenesis()
	g.Validators = append(g.Validators, g.Validators[0])
	if err := g.Validate(); err == nil {
		t.Error("genesis with duplicate validator should be invalid")
	}
}

func TestGenesis_Validate_NonGenesisBlock(t *testing.T) {
	g := MainnetGenesis()
	g.GenesisBlock.Header.Metadata.Height = 1
	if err := g.Validate(); err == nil {
		t.Error("genesis with non-zero height block should be invalid")
	}
}

func TestGenesisFor(t *testing.T) {
	if GenesisFor(Mainnet).NetworkID != mainnetNetworkID {
		t.Error("GenesisFor(Mainnet) should use the mainnet network ID")
	}
	if GenesisFor(Testnet).NetworkID != devnetNetworkID {
		t.Error("GenesisFor(Testnet) should use the devnet network ID")
	}
}

func TestGenesis_Hash_Deterministic(t *testing.T) {
	g1 := MainnetGenesis()
	g2 := MainnetGenesis()
	h1, err := g1.Hash()
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	h2, err := g2.Hash()
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if h1 != h2 {
		t.Error("Hash() should be deterministic for identical genesis configs")
	}
}

func TestGenesis_SaveLoad_RoundTrip(t *testing.T) {
	g := DevnetGenesis()
	path := t.TempDir() + "/genesis.json"
	if err := g.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis() error: %v", err)
	}
	if loaded.NetworkID != g.NetworkID {
		t.Errorf("loaded NetworkID = %d, want %d", loaded.NetworkID, g.NetworkID)
	}
	if len(loaded.Validators) != len(g.Validators) {
		t.Errorf("loaded validator count = %d, want %d", len(loaded.Validators), len(g.Validators))
	}
}
