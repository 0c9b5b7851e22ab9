// Package portfolio fans out independent single-symbol simulations over one
// capital pool and joins their results into a portfolio-level report.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/sim"
	"github.com/rustyeddy/quantsim/strategies"
)

// ErrAllSymbolsFailed is returned when not a single symbol's run completed.
// Partial failures never surface as errors; they are carried in the result.
var ErrAllSymbolsFailed = errors.New("portfolio: all symbol runs failed")

// Override narrows the shared loop settings for a single symbol. Zero fields
// inherit from the shared config.
type Override struct {
	Enabled             []string
	RiskPerTrade        float64
	MaxPositionFraction float64
	Exchange            *sim.Config
}

// Config is the portfolio-level configuration. Loop is the shared per-symbol
// template; Symbol and InitialCapital on it are ignored and filled per run.
type Config struct {
	TotalCapital    decimal.Decimal
	MaxPairFraction decimal.Decimal

	Loop      backtest.Config
	Overrides map[string]Override
}

// Validate checks the portfolio-level fields. Per-symbol loop configs are
// validated by backtest.New at fan-out time.
func (c Config) Validate() error {
	if !c.TotalCapital.IsPositive() {
		return fmt.Errorf("portfolio: total capital must be positive, got %s", c.TotalCapital)
	}
	one := decimal.NewFromInt(1)
	if !c.MaxPairFraction.IsPositive() || c.MaxPairFraction.GreaterThan(one) {
		return fmt.Errorf("portfolio: max pair fraction %s out of (0,1]", c.MaxPairFraction)
	}
	return nil
}

// Components supplies the per-run collaborators. The registry is shared and
// read-only; gate, classifier and router are factories because every symbol's
// loop owns mutable instances of each.
type Components struct {
	Registry   *strategies.Registry
	Gate       func() risk.Gate
	Classifier func() regime.Classifier
	Router     func() regime.Router
}

// Runner executes N symbol simulations concurrently. Each simulation owns
// its exchange, balances and strategy instances outright, so the fan-out
// needs no locking; the only join point is the WaitGroup.
type Runner struct {
	cfg  Config
	comp Components
}

func NewRunner(cfg Config, comp Components) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if comp.Registry == nil || comp.Gate == nil || comp.Classifier == nil || comp.Router == nil {
		return nil, fmt.Errorf("portfolio: registry and gate/classifier/router factories are required")
	}
	return &Runner{cfg: cfg, comp: comp}, nil
}

// Allocation is the per-symbol capital slice for n symbols:
// min(MaxPairFraction, 1/n) of total capital.
func (r *Runner) Allocation(n int) decimal.Decimal {
	frac := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n)))
	if r.cfg.MaxPairFraction.LessThan(frac) {
		frac = r.cfg.MaxPairFraction
	}
	return r.cfg.TotalCapital.Mul(frac)
}

type outcome struct {
	symbol string
	res    *backtest.RunResult
	err    error
}

// Run simulates every symbol concurrently and aggregates the survivors. A
// failing symbol is captured in Result.Failed and excluded from aggregation;
// Run itself errors only when every symbol failed.
func (r *Runner) Run(ctx context.Context, series map[string]market.Series) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("portfolio: no symbols to run")
	}

	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	alloc := r.Allocation(len(symbols))
	start := time.Now()

	outcomes := make([]outcome, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string, s market.Series) {
			defer wg.Done()
			outcomes[i] = r.runOne(ctx, sym, s, alloc)
		}(i, sym, series[sym])
	}
	wg.Wait()

	res := &Result{
		TotalCapital: r.cfg.TotalCapital,
		Allocation:   alloc,
		Symbols:      make(map[string]*backtest.RunResult),
		Failed:       make(map[string]error),
		Elapsed:      time.Since(start),
	}
	for _, o := range outcomes {
		if o.err != nil {
			logs.Warnf("portfolio: symbol %s failed: %v", o.symbol, o.err)
			res.Failed[o.symbol] = o.err
			continue
		}
		res.Symbols[o.symbol] = o.res
		res.order = append(res.order, o.symbol)
	}
	if len(res.Symbols) == 0 {
		return nil, fmt.Errorf("%w: %d symbols", ErrAllSymbolsFailed, len(symbols))
	}

	r.aggregate(res)
	return res, nil
}

// runOne builds and drives one symbol's loop. A panic from construction or
// the run is demoted to an error so one symbol can never take down the join.
func (r *Runner) runOne(ctx context.Context, sym string, s market.Series, alloc decimal.Decimal) (out outcome) {
	out.symbol = sym
	defer func() {
		if p := recover(); p != nil {
			out.res = nil
			out.err = fmt.Errorf("portfolio %s: panic: %v", sym, p)
		}
	}()

	cfg := r.cfg.Loop
	cfg.Symbol = sym
	cfg.InitialCapital = alloc
	if ov, ok := r.cfg.Overrides[sym]; ok {
		if len(ov.Enabled) > 0 {
			cfg.Enabled = ov.Enabled
		}
		if ov.RiskPerTrade > 0 {
			cfg.RiskPerTrade = ov.RiskPerTrade
		}
		if ov.MaxPositionFraction > 0 {
			cfg.MaxPositionFraction = ov.MaxPositionFraction
		}
		if ov.Exchange != nil {
			cfg.Exchange = *ov.Exchange
		}
	}

	loop, err := backtest.New(cfg, r.comp.Registry, r.comp.Gate(), r.comp.Classifier(), r.comp.Router())
	if err != nil {
		out.err = err
		return out
	}
	out.res, out.err = loop.Run(ctx, s)
	return out
}
