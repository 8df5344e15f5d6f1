package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// MintSecret resolves the mint secret, preferring the environment variable
// named by MintSecretEnv.
func (c Config) MintSecret() ([]byte, error) {
	raw := c.MintSecretHex
	if env := strings.TrimSpace(c.MintSecretEnv); env != "" {
		if value, ok := os.LookupEnv(env); ok {
			raw = value
		}
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, fmt.Errorf("mint secret not configured")
	}
	secret, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode mint secret: %w", err)
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("mint secret must be 32 bytes, got %d", len(secret))
	}
	return secret, nil
}
