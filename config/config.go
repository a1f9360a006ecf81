package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"kudomarket/crypto"
)

// Config is the construction-time surface of the marketplace daemon. The
// trusted forwarder can later be rotated by an administrator through the
// market engine; everything else is fixed for the process lifetime.
type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	ChainID          uint64 `toml:"ChainID"`
	AdminAddress     string `toml:"AdminAddress"`
	ForwarderAddress string `toml:"ForwarderAddress"`
	MarketAddress    string `toml:"MarketAddress"`
	DomainName       string `toml:"DomainName"`
	DomainVersion    string `toml:"DomainVersion"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./kudomarket-data"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 31337
	}
	if strings.TrimSpace(cfg.DomainName) == "" {
		cfg.DomainName = "MinimalForwarder"
	}
	if strings.TrimSpace(cfg.DomainVersion) == "" {
		cfg.DomainVersion = "0.0.1"
	}
}

// Validate checks address fields decode as bech32 account addresses.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	for field, value := range map[string]string{
		"AdminAddress":     cfg.AdminAddress,
		"ForwarderAddress": cfg.ForwarderAddress,
		"MarketAddress":    cfg.MarketAddress,
	} {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return fmt.Errorf("config: %s must be set", field)
		}
		if _, err := crypto.DecodeAddress(trimmed); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field, err)
		}
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, fmt.Errorf("config: wrote default config to %s; fill in AdminAddress, ForwarderAddress and MarketAddress", path)
}
