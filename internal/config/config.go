package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/mercury/internal/atom"
	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/pool"
	"github.com/cuemby/mercury/internal/store"
	"github.com/cuemby/mercury/internal/telemetry"
)

// Config is cmd/mercury's YAML configuration document, e.g.:
//
//	store:
//	  path: ./data
//	  bucketCount: 16777216
//	  offsetCapacity: 65536
//	  statsTopN: 100
//	pool:
//	  enabled: true
//	  maxSize: 0
//	  diskBudgetFraction: 0.33
//	  estimatedStoreSize: 67108864
//	  gate: false
//	  gateTimeout: 60s
//	log:
//	  level: info
//	  json: false
type Config struct {
	Store StoreConfig `yaml:"store"`
	Pool  PoolConfig  `yaml:"pool"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig configures the single store.Store that every cmd/mercury
// subcommand opens directly.
type StoreConfig struct {
	Path           string `yaml:"path"`
	BucketCount    uint64 `yaml:"bucketCount"`
	OffsetCapacity uint64 `yaml:"offsetCapacity"`
	StatsTopN      int    `yaml:"statsTopN"`
}

// PoolConfig configures an internal/pool.Pool via PoolOptions. The
// cmd/mercury subcommands do not read it, Enabled included: they always
// open Store.Path as a single store.Store.
type PoolConfig struct {
	Enabled            bool    `yaml:"enabled"`
	MaxSize            int     `yaml:"maxSize"`
	DiskBudgetFraction float64 `yaml:"diskBudgetFraction"`
	EstimatedStoreSize int64   `yaml:"estimatedStoreSize"`
	Gate               bool    `yaml:"gate"`
	GateTimeout        string  `yaml:"gateTimeout"`
}

// LogConfig configures telemetry's global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and parses the YAML document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.Wrap(merr.KindStorageIO, "config.Load", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, merr.Wrap(merr.KindInvalidArgument, "config.Load", err)
	}
	if cfg.Store.Path == "" {
		return nil, merr.New(merr.KindInvalidArgument, "config.Load: store.path is required")
	}
	return &cfg, nil
}

// StoreOptions translates StoreConfig into store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Atom: atom.Options{
			BucketCount:    c.Store.BucketCount,
			OffsetCapacity: c.Store.OffsetCapacity,
		},
		StatsTopN: c.Store.StatsTopN,
	}
}

// PoolOptions translates PoolConfig (plus StoreOptions) into
// pool.Options, rooted at root.
func (c *Config) PoolOptions(root string) (pool.Options, error) {
	opts := pool.Options{
		Root:               root,
		MaxSize:            c.Pool.MaxSize,
		DiskBudgetFraction: c.Pool.DiskBudgetFraction,
		EstimatedStoreSize: c.Pool.EstimatedStoreSize,
		Store:              c.StoreOptions(),
		Gate:               c.Pool.Gate,
	}
	if c.Pool.GateTimeout != "" {
		d, err := time.ParseDuration(c.Pool.GateTimeout)
		if err != nil {
			return pool.Options{}, merr.Wrap(merr.KindInvalidArgument, "config.PoolOptions", err)
		}
		opts.GateTimeout = d
	}
	return opts, nil
}

// LogTelemetryConfig translates LogConfig into telemetry.Config.
func (c *Config) LogTelemetryConfig() telemetry.Config {
	level := telemetry.Level(c.Log.Level)
	if level == "" {
		level = telemetry.InfoLevel
	}
	return telemetry.Config{Level: level, JSONOutput: c.Log.JSON}
}
