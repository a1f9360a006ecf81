package config

import (
	"os"
	"path/filepath"
	"testing"

	"kudomarket/crypto"
)

func testBech(t *testing.T, fill byte) string {
	t.Helper()
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return crypto.MustAddressFromBytes(addr).String()
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
AdminAddress = "`+testBech(t, 0xAD)+`"
ForwarderAddress = "`+testBech(t, 0xFF)+`"
MarketAddress = "`+testBech(t, 0x11)+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "127.0.0.1:8645" {
		t.Fatalf("unexpected default rpc address: %q", cfg.RPCAddress)
	}
	if cfg.ChainID != 31337 {
		t.Fatalf("unexpected default chain id: %d", cfg.ChainID)
	}
	if cfg.DomainName != "MinimalForwarder" || cfg.DomainVersion != "0.0.1" {
		t.Fatalf("unexpected domain defaults: %q %q", cfg.DomainName, cfg.DomainVersion)
	}
}

func TestLoadRejectsMissingAddresses(t *testing.T) {
	path := writeConfig(t, `
AdminAddress = "`+testBech(t, 0xAD)+`"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing address error")
	}
}

func TestLoadRejectsMalformedAddress(t *testing.T) {
	path := writeConfig(t, `
AdminAddress = "kudo1notvalid"
ForwarderAddress = "`+testBech(t, 0xFF)+`"
MarketAddress = "`+testBech(t, 0x11)+`"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected malformed address error")
	}
}

func TestLoadCreatesDefaultFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := Load(path); err == nil {
		t.Fatalf("first load must surface the created-default error")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}
