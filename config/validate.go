package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Validator.Enabled && cfg.Validator.Address == "" {
		return fmt.Errorf("validator.enabled requires validator.address")
	}
	if cfg.Proposer.Enabled && !cfg.Validator.Enabled {
		return fmt.Errorf("proposer.enabled requires a signing validator")
	}
	if cfg.Proposer.MaxTransactions < 0 {
		return fmt.Errorf("proposer.max_transactions must be >= 0")
	}
	if cfg.Proposer.MaxSolutions < 0 {
		return fmt.Errorf("proposer.max_solutions must be >= 0")
	}
	return nil
}
