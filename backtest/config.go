package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/sim"
)

// Config drives one symbol's simulation. It is plain data: everything the
// loop needs to know is here or injected through the constructor, nothing is
// read from ambient state.
type Config struct {
	Symbol         string
	InitialCapital decimal.Decimal

	// Tiers is the 5-timeframe ladder; Tiers[0] must match the timeframe of
	// the input series. RegimeTier selects the window handed to the regime
	// classifier.
	Tiers      []market.Timeframe
	RegimeTier market.Timeframe

	// Lookback bounds every rolling window handed to strategies and the
	// classifier.
	Lookback int

	// WarmupBars are context-only: indicators may seed, nothing trades.
	WarmupBars int

	// RegimeEvery re-evaluates the regime every R active bars; the result is
	// cached in between. AnalyzeEvery refreshes strategy indicators every A
	// bars.
	RegimeEvery  int
	AnalyzeEvery int

	// RiskPerTrade sizes a position from the entry/stop distance;
	// MaxPositionFraction caps the position's value as a fraction of the
	// portfolio. Both are fractions of portfolio value.
	RiskPerTrade        float64
	MaxPositionFraction float64

	// Enabled lists the strategy kinds to instantiate from the registry.
	Enabled []string

	Exchange sim.Config
}

// Defaults fills zero fields with working values. Symbol, capital and
// enabled kinds stay caller-provided.
func (c *Config) Defaults() {
	if len(c.Tiers) == 0 {
		c.Tiers = market.DefaultTiers()
	}
	if c.RegimeTier == 0 {
		c.RegimeTier = market.H1
	}
	if c.Lookback == 0 {
		c.Lookback = 100
	}
	if c.WarmupBars == 0 {
		c.WarmupBars = 50
	}
	if c.RegimeEvery == 0 {
		c.RegimeEvery = 12
	}
	if c.AnalyzeEvery == 0 {
		c.AnalyzeEvery = 1
	}
	if c.RiskPerTrade == 0 {
		c.RiskPerTrade = 0.01
	}
	if c.MaxPositionFraction == 0 {
		c.MaxPositionFraction = 0.20
	}
}

// Validate checks the configuration is runnable.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("backtest: symbol is required")
	}
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("backtest: initial capital must be positive, got %s", c.InitialCapital)
	}
	if len(c.Tiers) != 5 {
		return fmt.Errorf("backtest: exactly 5 timeframe tiers required, got %d", len(c.Tiers))
	}
	found := false
	for _, tf := range c.Tiers {
		if tf == c.RegimeTier {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("backtest: regime tier %s not in tier set", c.RegimeTier)
	}
	if c.Lookback <= 0 || c.WarmupBars <= 0 || c.RegimeEvery <= 0 || c.AnalyzeEvery <= 0 {
		return fmt.Errorf("backtest: lookback/warmup/regime-every/analyze-every must be positive")
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("backtest: risk per trade %v out of (0,1]", c.RiskPerTrade)
	}
	if c.MaxPositionFraction <= 0 || c.MaxPositionFraction > 1 {
		return fmt.Errorf("backtest: max position fraction %v out of (0,1]", c.MaxPositionFraction)
	}
	if len(c.Enabled) == 0 {
		return fmt.Errorf("backtest: no strategy kinds enabled")
	}
	return nil
}
