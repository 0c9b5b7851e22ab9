package cmd

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/datafeed"
	"github.com/rustyeddy/quantsim/journal"
	"github.com/rustyeddy/quantsim/market"
	"github.com/rustyeddy/quantsim/portfolio"
	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/risk"
	"github.com/rustyeddy/quantsim/strategies"
)

// buildRegistry registers every built-in strategy kind. Unknown kinds in
// cfg.Strategy.Enabled surface later, when the loop is constructed.
func buildRegistry(cfg *config.Config) (*strategies.Registry, error) {
	reg := strategies.NewRegistry()
	if err := reg.Register("ema-cross", func() (strategies.Strategy, error) {
		return strategies.NewEMACross(cfg.Strategy.EMACross), nil
	}); err != nil {
		return nil, err
	}
	if err := reg.Register("noop", func() (strategies.Strategy, error) {
		return strategies.Noop{}, nil
	}); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildComponents wires the per-run collaborators from the file config.
// Factories hand each simulation its own mutable gate, classifier and
// router.
func buildComponents(cfg *config.Config) (portfolio.Components, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return portfolio.Components{}, err
	}

	policy := cfg.Policy()
	classifierCfg := cfg.ClassifierConfig()
	table := cfg.RouterTable()
	cooldown := cfg.Regime.CooldownBars
	if cooldown <= 0 {
		cooldown = 12
	}
	enabled := cfg.Strategy.Enabled

	return portfolio.Components{
		Registry:   reg,
		Gate:       func() risk.Gate { return risk.NewBasicGate(policy) },
		Classifier: func() regime.Classifier { return regime.NewATRClassifier(classifierCfg) },
		Router:     func() regime.Router { return regime.NewCooldownRouter(cooldown, enabled, table) },
	}, nil
}

// loadSeries resolves the data section into one candle series per symbol.
func loadSeries(cfg *config.Config) (map[string]market.Series, error) {
	out := make(map[string]market.Series)
	switch cfg.Data.Source {
	case "csv":
		for sym, path := range cfg.Data.Files {
			s, err := datafeed.LoadCSV(path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", sym, err)
			}
			out[sym] = s
		}
	case "klines":
		for sym, path := range cfg.Data.Files {
			s, err := datafeed.LoadKlinesJSON(path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", sym, err)
			}
			out[sym] = s
		}
	case "synthetic":
		syms := append([]string(nil), cfg.Data.Synthetic.Symbols...)
		sort.Strings(syms)
		for i, sym := range syms {
			out[sym] = datafeed.Synthetic(datafeed.SyntheticConfig{
				Bars:       cfg.Data.Synthetic.Bars,
				Seed:       cfg.Data.Synthetic.Seed + int64(i),
				StartPrice: cfg.Data.Synthetic.StartPrice,
				Drift:      cfg.Data.Synthetic.Drift,
				Volatility: cfg.Data.Synthetic.Volatility,
			})
		}
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
	return out, nil
}

// openJournal returns nil when journaling is disabled.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "", "none":
		return nil, nil
	case "csv":
		return journal.NewCSV(cfg.Journal.Dir)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}
