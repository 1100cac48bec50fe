package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thanhnp/pow-ledger/internal/ledger"
)

// Config represents the application configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Pebble PebbleConfig `yaml:"pebble"`
	Ledger LedgerConfig `yaml:"ledger"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// PebbleConfig represents the in-memory block index configuration
type PebbleConfig struct {
	CacheSizeMB int `yaml:"cache_size_mb"`
}

// LedgerConfig represents the defaults for newly created chains
type LedgerConfig struct {
	Difficulty          int      `yaml:"difficulty"`
	GenesisTransactions []string `yaml:"genesis_transactions"`
	MiningTimeout       int      `yaml:"mining_timeout"` // seconds, 0 waits for the search to finish
	DefaultChain        bool     `yaml:"default_chain"`  // create one chain at start-up
}

// Default returns the configuration used when no file or env is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Pebble: PebbleConfig{
			CacheSizeMB: 64,
		},
		Ledger: LedgerConfig{
			Difficulty:          ledger.DefaultDifficulty,
			GenesisTransactions: ledger.DefaultGenesisTransactions(),
			DefaultChain:        true,
		},
	}
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Ledger.Difficulty < 0 || c.Ledger.Difficulty > ledger.MaxDifficulty {
		return fmt.Errorf("invalid ledger difficulty: %d (must be between 0 and %d)", c.Ledger.Difficulty, ledger.MaxDifficulty)
	}
	if c.Ledger.MiningTimeout < 0 {
		return fmt.Errorf("invalid mining timeout: %d", c.Ledger.MiningTimeout)
	}
	if c.Pebble.CacheSizeMB < 0 {
		return fmt.Errorf("invalid pebble cache size: %d", c.Pebble.CacheSizeMB)
	}
	return nil
}

// MiningTimeoutDuration returns the mining timeout, 0 meaning none
func (c *Config) MiningTimeoutDuration() time.Duration {
	return time.Duration(c.Ledger.MiningTimeout) * time.Second
}

// CacheSizeBytes returns the pebble cache size in bytes
func (c *Config) CacheSizeBytes() int64 {
	return int64(c.Pebble.CacheSizeMB) << 20
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Pebble config
	if size := os.Getenv("PEBBLE_CACHE_SIZE_MB"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			c.Pebble.CacheSizeMB = s
		}
	}

	// Ledger config
	if difficulty := os.Getenv("LEDGER_DIFFICULTY"); difficulty != "" {
		if d, err := strconv.Atoi(difficulty); err == nil {
			c.Ledger.Difficulty = d
		}
	}
	if genesis, ok := os.LookupEnv("LEDGER_GENESIS_TRANSACTIONS"); ok {
		c.Ledger.GenesisTransactions = splitList(genesis)
	}
	if timeout := os.Getenv("LEDGER_MINING_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Ledger.MiningTimeout = t
		}
	}
	if defaultChain := os.Getenv("LEDGER_DEFAULT_CHAIN"); defaultChain != "" {
		c.Ledger.DefaultChain = defaultChain == "true" || defaultChain == "1"
	}
}

// splitList splits a comma separated list, dropping empty entries
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
