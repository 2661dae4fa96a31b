// Package config holds this module's two named configuration records
// (spec.md §9: a fixed, explicit-field configuration replaces the
// original project's dynamic kwargs). Each record can be built
// directly via a struct literal, or hydrated from a YAML file layered
// over DefaultConfig the way the teacher's pkg/config layers a user's
// config.yml over GetDefaultConfig.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/jesseduffield/yaml"
)

// BlobStoreConfig configures pkg/blobstore.LocalStore.
type BlobStoreConfig struct {
	// RootPath is the directory blobs are staged and installed under.
	RootPath string `yaml:"rootPath,omitempty"`
	// Fsync controls whether every stored blob (and its shard
	// directory) is fsynced before Store returns.
	Fsync bool `yaml:"fsync,omitempty"`
}

// EventStoreConfig configures pkg/sqlstore.Open.
type EventStoreConfig struct {
	// DSN is the database/sql data source name for the chosen
	// dialect's driver.
	DSN string `yaml:"dsn,omitempty"`
	// StatementTimeout bounds every individual Store call.
	StatementTimeout time.Duration `yaml:"statementTimeout,omitempty"`
	// PoolSize caps open database connections.
	PoolSize int `yaml:"poolSize,omitempty"`
}

// Config is this module's top-level configuration.
type Config struct {
	BlobStore  BlobStoreConfig  `yaml:"blobStore,omitempty"`
	EventStore EventStoreConfig `yaml:"eventStore,omitempty"`
	// Debug widens logging the way pkg/log.Options.Debug does.
	Debug bool `yaml:"debug,omitempty"`
	// LogDir is where the debug log file is written, when Debug is
	// set.
	LogDir string `yaml:"logDir,omitempty"`
}

// DefaultConfig returns the configuration a fresh checkout runs with:
// an embedded SQLite database and blob store under ./data, synchronous
// writes, debug logging off unless DEBUG=TRUE is set in the
// environment.
func DefaultConfig() Config {
	return Config{
		BlobStore: BlobStoreConfig{
			RootPath: "./data/blobs",
			Fsync:    true,
		},
		EventStore: EventStoreConfig{
			DSN:              "./data/events.db",
			StatementTimeout: 5 * time.Second,
			PoolSize:         4,
		},
		Debug: os.Getenv("DEBUG") == "TRUE",
	}
}

// Load reads path as YAML and unmarshals it over DefaultConfig. A
// missing file is not an error: Load returns the defaults unchanged,
// since a standalone persistence core shouldn't require an operator
// to hand-author a config file just to start.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
