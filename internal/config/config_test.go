package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Ledger.Difficulty != 2 || !cfg.Ledger.DefaultChain {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if len(cfg.Ledger.GenesisTransactions) != 1 || cfg.Ledger.GenesisTransactions[0] != "Genesis Block" {
		t.Errorf("genesis transactions = %v", cfg.Ledger.GenesisTransactions)
	}
	if cfg.MiningTimeoutDuration() != 0 {
		t.Errorf("mining timeout = %v, want 0", cfg.MiningTimeoutDuration())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
ledger:
  difficulty: 4
  mining_timeout: 30
  default_chain: false
  genesis_transactions:
    - first
    - second
pebble:
  cache_size_mb: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Ledger.Difficulty != 4 || cfg.Ledger.DefaultChain {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if cfg.MiningTimeoutDuration() != 30*time.Second {
		t.Errorf("mining timeout = %v", cfg.MiningTimeoutDuration())
	}
	if got := cfg.Ledger.GenesisTransactions; len(got) != 2 || got[1] != "second" {
		t.Errorf("genesis transactions = %v", got)
	}
	if cfg.CacheSizeBytes() != 8<<20 {
		t.Errorf("cache size = %d", cfg.CacheSizeBytes())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "ledger:\n  difficulty: 4\n")
	t.Setenv("LEDGER_DIFFICULTY", "1")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("LEDGER_GENESIS_TRANSACTIONS", "a, b,,c")
	t.Setenv("LEDGER_DEFAULT_CHAIN", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Difficulty != 1 || cfg.Server.Port != 7000 || cfg.Ledger.DefaultChain {
		t.Errorf("cfg = %+v", cfg)
	}
	if got := cfg.Ledger.GenesisTransactions; len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("genesis transactions = %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []string{
		"ledger:\n  difficulty: 65\n",
		"ledger:\n  difficulty: -1\n",
		"ledger:\n  mining_timeout: -5\n",
		"server:\n  port: 0\n",
		"server: [not a map\n",
	}
	for _, body := range tests {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("Load(%q) succeeded, want error", body)
		}
	}
}
