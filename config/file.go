package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
// Only node-operational settings, NOT protocol rules.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Validator
	case "validator.enabled", "validator":
		cfg.Validator.Enabled = parseBool(value)
	case "validator.address":
		cfg.Validator.Address = value
	case "validator.keyfile":
		cfg.Validator.KeyFile = value

	// Proposer (operational, not consensus rules)
	case "proposer.enabled", "propose":
		cfg.Proposer.Enabled = parseBool(value)
	case "proposer.max_transactions":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Proposer.MaxTransactions = n
	case "proposer.max_solutions":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Proposer.MaxSolutions = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Klingnet Ledger Node Configuration
#
# This file contains NODE settings only.
# Protocol rules (coinbase puzzle parameters, epoch length, validator set)
# are hardcoded in the genesis configuration and cannot be changed without
# a hard fork.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingnet)
# datadir = ~/.klingnet

# ============================================================================
# Validator
# ============================================================================

# Enable block signing (this node must be a member of the genesis validator set)
validator.enabled = false

# Address used to sign blocks
# validator.address = <your-address>

# Path to the validator's signing key
# validator.keyfile = ~/.klingnet/keystore/validator.key

# ============================================================================
# Block Proposer
# ============================================================================

# Enable local block production
proposer.enabled = false

# Maximum transactions included per proposed block
proposer.max_transactions = 1024

# Maximum prover solutions aggregated per proposed block
proposer.max_solutions = 65536

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
