// Package config loads and validates the full run configuration from YAML
// or JSON and maps it onto the typed configs of the engine packages.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/sim"
	"github.com/rustyeddy/quantsim/strategies"
)

// Config represents the complete run configuration.
type Config struct {
	Portfolio  PortfolioConfig  `json:"portfolio" yaml:"portfolio"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Exchange   ExchangeConfig   `json:"exchange" yaml:"exchange"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Regime     RegimeConfig     `json:"regime" yaml:"regime"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// PortfolioConfig sizes the capital pool.
type PortfolioConfig struct {
	Capital         float64 `json:"capital" yaml:"capital"`
	MaxPairFraction float64 `json:"max_pair_fraction" yaml:"max_pair_fraction"`
}

// SimulationConfig contains the per-symbol loop parameters.
type SimulationConfig struct {
	Tiers               []string `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	RegimeTier          string   `json:"regime_tier,omitempty" yaml:"regime_tier,omitempty"`
	Lookback            int      `json:"lookback" yaml:"lookback"`
	WarmupBars          int      `json:"warmup_bars" yaml:"warmup_bars"`
	RegimeEvery         int      `json:"regime_every" yaml:"regime_every"`
	AnalyzeEvery        int      `json:"analyze_every" yaml:"analyze_every"`
	RiskPerTrade        float64  `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxPositionFraction float64  `json:"max_position_fraction" yaml:"max_position_fraction"`
}

// ExchangeConfig contains the simulated exchange parameters.
type ExchangeConfig struct {
	FeeRate    float64 `json:"fee_rate" yaml:"fee_rate"`
	Slippage   float64 `json:"slippage" yaml:"slippage"`
	AllowShort bool    `json:"allow_short" yaml:"allow_short"`
}

// StrategyConfig selects and tunes the strategies.
type StrategyConfig struct {
	Enabled  []string                  `json:"enabled" yaml:"enabled"`
	EMACross strategies.EMACrossConfig `json:"ema_cross" yaml:"ema_cross"`
}

// RiskConfig contains the risk gate limits.
type RiskConfig struct {
	MaxOrderPct      float64 `json:"max_order_pct" yaml:"max_order_pct"`
	MaxExposurePct   float64 `json:"max_exposure_pct" yaml:"max_exposure_pct"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	MaxPeriodLossPct float64 `json:"max_period_loss_pct" yaml:"max_period_loss_pct"`
}

// RegimeConfig tunes the classifier and the strategy router. Table maps a
// regime tag to the strategy kinds allowed to trade in it; a missing tag
// means no strategy trades there.
type RegimeConfig struct {
	CooldownBars   int                 `json:"cooldown_bars" yaml:"cooldown_bars"`
	ATRPeriod      int                 `json:"atr_period" yaml:"atr_period"`
	VolThreshold   float64             `json:"vol_threshold" yaml:"vol_threshold"`
	TrendThreshold float64             `json:"trend_threshold" yaml:"trend_threshold"`
	Table          map[string][]string `json:"table" yaml:"table"`
}

// DataConfig names the candle sources, one per symbol.
type DataConfig struct {
	// Source is "csv", "klines" or "synthetic".
	Source string `json:"source" yaml:"source"`
	// Files maps symbol to file path for the csv and klines sources.
	Files map[string]string `json:"files,omitempty" yaml:"files,omitempty"`

	Synthetic SyntheticData `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// SyntheticData parameterizes the generated source.
type SyntheticData struct {
	Symbols    []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Bars       int      `json:"bars" yaml:"bars"`
	Seed       int64    `json:"seed" yaml:"seed"`
	StartPrice float64  `json:"start_price,omitempty" yaml:"start_price,omitempty"`
	Drift      float64  `json:"drift,omitempty" yaml:"drift,omitempty"`
	Volatility float64  `json:"volatility,omitempty" yaml:"volatility,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Portfolio.Capital <= 0 {
		return fmt.Errorf("portfolio.capital must be positive")
	}
	if c.Portfolio.MaxPairFraction <= 0 || c.Portfolio.MaxPairFraction > 1 {
		return fmt.Errorf("portfolio.max_pair_fraction must be in (0,1]")
	}
	for _, tier := range c.Simulation.Tiers {
		if _, err := market.ParseTimeframe(tier); err != nil {
			return fmt.Errorf("simulation.tiers: %w", err)
		}
	}
	if c.Simulation.RegimeTier != "" {
		if _, err := market.ParseTimeframe(c.Simulation.RegimeTier); err != nil {
			return fmt.Errorf("simulation.regime_tier: %w", err)
		}
	}
	if len(c.Strategy.Enabled) == 0 {
		return fmt.Errorf("strategy.enabled must name at least one kind")
	}
	if c.Exchange.FeeRate < 0 || c.Exchange.Slippage < 0 {
		return fmt.Errorf("exchange fee_rate and slippage must be non-negative")
	}
	for tag := range c.Regime.Table {
		switch regime.Tag(tag) {
		case regime.Trending, regime.Ranging, regime.Volatile:
		default:
			return fmt.Errorf("regime.table: unknown tag %q", tag)
		}
	}
	switch c.Data.Source {
	case "csv", "klines":
		if len(c.Data.Files) == 0 {
			return fmt.Errorf("data.files required for source %q", c.Data.Source)
		}
	case "synthetic":
		if len(c.Data.Synthetic.Symbols) == 0 || c.Data.Synthetic.Bars <= 0 {
			return fmt.Errorf("data.synthetic needs symbols and a positive bar count")
		}
	default:
		return fmt.Errorf("data.source must be 'csv', 'klines' or 'synthetic'")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// LoopConfig maps the file configuration onto the per-symbol loop config.
// Symbol and capital are filled by the portfolio runner.
func (c *Config) LoopConfig() (backtest.Config, error) {
	lc := backtest.Config{
		Lookback:            c.Simulation.Lookback,
		WarmupBars:          c.Simulation.WarmupBars,
		RegimeEvery:         c.Simulation.RegimeEvery,
		AnalyzeEvery:        c.Simulation.AnalyzeEvery,
		RiskPerTrade:        c.Simulation.RiskPerTrade,
		MaxPositionFraction: c.Simulation.MaxPositionFraction,
		Enabled:             c.Strategy.Enabled,
		Exchange: sim.Config{
			FeeRate:    decimal.NewFromFloat(c.Exchange.FeeRate),
			Slippage:   decimal.NewFromFloat(c.Exchange.Slippage),
			AllowShort: c.Exchange.AllowShort,
		},
	}
	for _, tier := range c.Simulation.Tiers {
		tf, err := market.ParseTimeframe(tier)
		if err != nil {
			return backtest.Config{}, err
		}
		lc.Tiers = append(lc.Tiers, tf)
	}
	if c.Simulation.RegimeTier != "" {
		tf, err := market.ParseTimeframe(c.Simulation.RegimeTier)
		if err != nil {
			return backtest.Config{}, err
		}
		lc.RegimeTier = tf
	}
	return lc, nil
}

// PortfolioConfig maps the file configuration onto the runner config.
func (c *Config) PortfolioConfig() (portfolio.Config, error) {
	lc, err := c.LoopConfig()
	if err != nil {
		return portfolio.Config{}, err
	}
	return portfolio.Config{
		TotalCapital:    decimal.NewFromFloat(c.Portfolio.Capital),
		MaxPairFraction: decimal.NewFromFloat(c.Portfolio.MaxPairFraction),
		Loop:            lc,
	}, nil
}

// Policy maps the risk section onto the gate policy, falling back to the
// package defaults for zero fields.
func (c *Config) Policy() risk.Policy {
	p := risk.DefaultPolicy()
	if c.Risk.MaxOrderPct > 0 {
		p.MaxOrderPct = c.Risk.MaxOrderPct
	}
	if c.Risk.MaxExposurePct > 0 {
		p.MaxExposurePct = c.Risk.MaxExposurePct
	}
	if c.Risk.MaxDrawdownPct > 0 {
		p.MaxDrawdownPct = c.Risk.MaxDrawdownPct
	}
	if c.Risk.MaxPeriodLossPct > 0 {
		p.MaxPeriodLossPct = c.Risk.MaxPeriodLossPct
	}
	return p
}

// ClassifierConfig maps the regime section onto the ATR classifier config.
func (c *Config) ClassifierConfig() regime.ATRClassifierConfig {
	rc := regime.ATRClassifierDefaults()
	if c.Regime.ATRPeriod > 0 {
		rc.ATRPeriod = c.Regime.ATRPeriod
	}
	if c.Regime.VolThreshold > 0 {
		rc.VolThreshold = c.Regime.VolThreshold
	}
	if c.Regime.TrendThreshold > 0 {
		rc.TrendThreshold = c.Regime.TrendThreshold
	}
	return rc
}

// RouterTable converts the string-keyed table to regime tags. With no table
// configured, every enabled strategy trades in every regime.
func (c *Config) RouterTable() map[regime.Tag][]string {
	table := make(map[regime.Tag][]string)
	if len(c.Regime.Table) == 0 {
		for _, tag := range []regime.Tag{regime.Trending, regime.Ranging, regime.Volatile} {
			table[tag] = c.Strategy.Enabled
		}
		return table
	}
	for tag, kinds := range c.Regime.Table {
		table[regime.Tag(tag)] = kinds
	}
	return table
}

// Default returns a configuration with sensible defaults: a two-symbol
// synthetic run with the EMA cross strategy.
func Default() *Config {
	return &Config{
		Portfolio: PortfolioConfig{
			Capital:         10000,
			MaxPairFraction: 0.25,
		},
		Simulation: SimulationConfig{
			Lookback:            100,
			WarmupBars:          50,
			RegimeEvery:         12,
			AnalyzeEvery:        1,
			RiskPerTrade:        0.01,
			MaxPositionFraction: 0.20,
		},
		Exchange: ExchangeConfig{
			FeeRate:  0.001,
			Slippage: 0.0005,
		},
		Strategy: StrategyConfig{
			Enabled:  []string{"ema-cross"},
			EMACross: strategies.EMACrossDefaults(),
		},
		Regime: RegimeConfig{
			CooldownBars: 12,
		},
		Data: DataConfig{
			Source: "synthetic",
			Synthetic: SyntheticData{
				Symbols:    []string{"BTC/USDT", "ETH/USDT"},
				Bars:       2000,
				Seed:       1,
				StartPrice: 100,
				Volatility: 0.002,
			},
		},
		Journal: JournalConfig{Type: "none"},
	}
}
