// Package common provides shared configuration helpers for the CryptoSanta
// binaries: the YAML config schema, file loading, and store construction.
package common

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chi-feng/cryptosanta/store"
)

// Store backend names accepted in configuration.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Config is the YAML configuration for the server binary. Flags override
// individual fields.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`
	LogJSON     bool   `yaml:"log_json"`
	LogDebug    bool   `yaml:"log_debug"`

	DrainDuration            time.Duration `yaml:"drain_duration"`
	GracefulShutdownDuration time.Duration `yaml:"graceful_shutdown_duration"`

	Store StoreConfig `yaml:"store"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	// Backend is one of "memory", "badger" or "postgres".
	Backend string `yaml:"backend"`

	// BadgerPath is the data directory for the badger backend.
	BadgerPath string `yaml:"badger_path"`

	Postgres store.PostgresConfig `yaml:"postgres"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:               ":8080",
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		Store:                    StoreConfig{Backend: StoreMemory},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// OpenRecordStore constructs the configured record store backend.
func OpenRecordStore(cfg *StoreConfig) (store.RecordStore, error) {
	switch cfg.Backend {
	case "", StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreBadger:
		if cfg.BadgerPath == "" {
			return nil, fmt.Errorf("badger backend requires badger_path")
		}
		return store.NewBadgerStore(store.BadgerConfig{Path: cfg.BadgerPath})
	case StorePostgres:
		return store.NewPostgresStore(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
