package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	GenesisFile   string `toml:"GenesisFile"`
	Environment   string `toml:"Environment"`
	LogLevel      string `toml:"LogLevel"`
	LogFile       string `toml:"LogFile,omitempty"`
	// MintSecretHex is the hex encoded 32-byte key issuance capabilities are
	// derived from. MintSecretEnv names an environment variable that
	// overrides it.
	MintSecretHex string `toml:"MintSecretHex"`
	MintSecretEnv string `toml:"MintSecretEnv,omitempty"`
	// ReceiptsDB is the sqlite file the purchase journal is written to. Empty
	// disables the journal.
	ReceiptsDB    string `toml:"ReceiptsDB,omitempty"`

	Pricing   Pricing   `toml:"pricing"`
	Vault     Vault     `toml:"vault"`
	Bootstrap Bootstrap `toml:"bootstrap"`
	RateLimit RateLimit `toml:"rate_limit"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Load loads the configuration from the given path. A default file, including
// a freshly generated mint secret, is written when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if err := ValidateConfig(*cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node, without a mint
// secret.
func Default() *Config {
	return &Config{
		ListenAddress: ":8080",
		DataDir:       "./hashmelody-data",
		GenesisFile:   "",
		Environment:   "local",
		LogLevel:      "info",
		Pricing:       Pricing{K: 1, M: 100},
		Vault:         Vault{LiquidityThreshold: 10_000_000_000},
		Bootstrap:     Bootstrap{BaseUnits: 1_000_000, AllocationBps: 500},
		RateLimit:     RateLimit{RequestsPerMinute: 600, Burst: 60},
		Telemetry:     Telemetry{Metrics: true},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.MintSecretHex = hex.EncodeToString(secret)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	// The file carries the mint secret.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
