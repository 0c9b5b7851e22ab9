package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/regime"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
portfolio:
  capital: 50000
  max_pair_fraction: 0.3
simulation:
  tiers: ["5m", "15m", "1h", "4h", "1d"]
  regime_tier: "1h"
  warmup_bars: 60
strategy:
  enabled: ["ema-cross", "noop"]
exchange:
  fee_rate: 0.002
data:
  source: csv
  files:
    BTC/USDT: ./btc.csv
regime:
  table:
    trending: ["ema-cross"]
    ranging: ["noop"]
journal:
  type: sqlite
  db_path: ./runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Portfolio.Capital)
	assert.Equal(t, 0.3, cfg.Portfolio.MaxPairFraction)
	assert.Equal(t, 60, cfg.Simulation.WarmupBars)
	assert.Equal(t, []string{"ema-cross", "noop"}, cfg.Strategy.Enabled)
	assert.Equal(t, "sqlite", cfg.Journal.Type)

	lc, err := cfg.LoopConfig()
	require.NoError(t, err)
	assert.Equal(t, market.H1, lc.RegimeTier)
	require.Len(t, lc.Tiers, 5)
	assert.Equal(t, market.M5, lc.Tiers[0])
	assert.True(t, lc.Exchange.FeeRate.Equal(decimal.NewFromFloat(0.002)))

	table := cfg.RouterTable()
	assert.Equal(t, []string{"ema-cross"}, table[regime.Trending])
	assert.Equal(t, []string{"noop"}, table[regime.Ranging])
	_, ok := table[regime.Volatile]
	assert.False(t, ok, "unlisted regime stays untradeable")
}

func TestLoadJSONFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	doc := `{
  "portfolio": {"capital": 20000, "max_pair_fraction": 0.5},
  "strategy": {"enabled": ["noop"]},
  "data": {"source": "synthetic", "synthetic": {"symbols": ["A/B"], "bars": 100}}
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 20000.0, cfg.Portfolio.Capital)
	assert.Equal(t, []string{"noop"}, cfg.Strategy.Enabled)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.Portfolio.Capital = 0 }},
		{"fraction above one", func(c *Config) { c.Portfolio.MaxPairFraction = 1.5 }},
		{"bad tier", func(c *Config) { c.Simulation.Tiers = []string{"7q"} }},
		{"no strategies", func(c *Config) { c.Strategy.Enabled = nil }},
		{"negative fee", func(c *Config) { c.Exchange.FeeRate = -0.1 }},
		{"unknown regime tag", func(c *Config) { c.Regime.Table = map[string][]string{"sideways": nil} }},
		{"csv without files", func(c *Config) { c.Data.Source = "csv"; c.Data.Files = nil }},
		{"bad source", func(c *Config) { c.Data.Source = "ftp" }},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Portfolio.Capital = 12345

	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path))
		got, err := LoadFromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg.Portfolio.Capital, got.Portfolio.Capital, name)
		assert.Equal(t, cfg.Strategy.Enabled, got.Strategy.Enabled, name)
	}
}

func TestRouterTableDefaultsToAllRegimes(t *testing.T) {
	cfg := Default()
	table := cfg.RouterTable()
	for _, tag := range []regime.Tag{regime.Trending, regime.Ranging, regime.Volatile} {
		assert.Equal(t, cfg.Strategy.Enabled, table[tag])
	}
}
