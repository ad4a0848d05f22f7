package node

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// readKeyFile reads a hex-encoded secp256k1 private key from path. The
// full HD/keystore-file format the teacher's wallet package used is out of
// scope (SPEC_FULL §1); a validator key here is a single raw key, matching
// pkg/crypto.PrivateKeyFromBytes's expected input.
func readKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	return decoded, nil
}
