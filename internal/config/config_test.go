package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mercury.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadParsesStorePoolAndLogSections(t *testing.T) {
	path := writeConfig(t, `
store:
  path: ./data
  bucketCount: 1024
  offsetCapacity: 64
  statsTopN: 10
pool:
  enabled: true
  maxSize: 4
  diskBudgetFraction: 0.5
  estimatedStoreSize: 1048576
  gate: true
  gateTimeout: 5s
log:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Store.Path)
	assert.EqualValues(t, 1024, cfg.Store.BucketCount)
	assert.True(t, cfg.Pool.Enabled)
	assert.Equal(t, 4, cfg.Pool.MaxSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRejectsMissingStorePath(t *testing.T) {
	path := writeConfig(t, `
store:
  bucketCount: 1024
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStoreOptionsTranslatesAtomSizing(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Path: "./data", BucketCount: 2048, OffsetCapacity: 128, StatsTopN: 5}}
	opts := cfg.StoreOptions()
	assert.EqualValues(t, 2048, opts.Atom.BucketCount)
	assert.EqualValues(t, 128, opts.Atom.OffsetCapacity)
	assert.Equal(t, 5, opts.StatsTopN)
}

func TestPoolOptionsParsesGateTimeout(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{Path: "./data"},
		Pool:  PoolConfig{Enabled: true, Gate: true, GateTimeout: "30s"},
	}
	opts, err := cfg.PoolOptions("/tmp/pool-root")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pool-root", opts.Root)
	assert.Equal(t, 30e9, float64(opts.GateTimeout))
}

func TestPoolOptionsRejectsBadGateTimeout(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Path: "./data"}, Pool: PoolConfig{GateTimeout: "not-a-duration"}}
	_, err := cfg.PoolOptions("/tmp/pool-root")
	assert.Error(t, err)
}

func TestLogTelemetryConfigDefaultsToInfo(t *testing.T) {
	cfg := &Config{}
	got := cfg.LogTelemetryConfig()
	assert.EqualValues(t, "info", got.Level)
}
