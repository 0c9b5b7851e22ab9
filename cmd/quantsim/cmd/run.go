package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backtest a single symbol from a config file",
	Long: `Run one symbol's simulation with the full capital pool.

The config file names the data sources; with more than one symbol configured,
--symbol selects which one to run.

Example:
  quantsim run -f examples/configs/btc.yaml --symbol BTC/USDT`,
	RunE: runRun,
}

var (
	runConfigPath string
	runSymbol     string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol to run (defaults to the only configured symbol)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	series, err := loadSeries(cfg)
	if err != nil {
		return err
	}
	symbol := runSymbol
	if symbol == "" {
		symbols := make([]string, 0, len(series))
		for sym := range series {
			symbols = append(symbols, sym)
		}
		if len(symbols) != 1 {
			sort.Strings(symbols)
			return fmt.Errorf("config has %d symbols %v, pick one with --symbol", len(symbols), symbols)
		}
		symbol = symbols[0]
	}
	s, ok := series[symbol]
	if !ok {
		return fmt.Errorf("symbol %q not in configured data sources", symbol)
	}

	comp, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	loopCfg, err := cfg.LoopConfig()
	if err != nil {
		return err
	}
	loopCfg.Symbol = symbol
	loopCfg.InitialCapital = decimal.NewFromFloat(cfg.Portfolio.Capital)

	loop, err := backtest.New(loopCfg, comp.Registry, comp.Gate(), comp.Classifier(), comp.Router())
	if err != nil {
		return err
	}

	res, err := loop.Run(context.Background(), s)
	if err != nil {
		return err
	}

	printRun(res)

	if j, err := openJournal(cfg); err != nil {
		return err
	} else if j != nil {
		defer j.Close()
		runID, err := j.RecordRun(res)
		if err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
		fmt.Printf("\nJournaled as run %s\n", runID)
	}
	return nil
}

func printRun(res *backtest.RunResult) {
	fmt.Printf("Run %s: %d bars (%d warmup)\n", res.Symbol, res.TotalBars, res.WarmupBars)
	fmt.Printf("  Capital:   %s -> %s (%.2f%%)\n", res.InitialCapital, res.FinalValue, res.ReturnPct)
	fmt.Printf("  Drawdown:  %.2f%% (%s)\n", res.MaxDrawdownPct, res.MaxDrawdown)
	fmt.Printf("  Trades:    %d\n", len(res.Trades))
	for kind, pnl := range res.StrategyPnL {
		fmt.Printf("    %-12s %s\n", kind, pnl)
	}
	fmt.Printf("  Regime:    %d evals, %d route changes, %d cooldown blocks\n",
		res.Counters.RegimeEvals, res.Counters.RouteChanges, res.Counters.CooldownBlocks)
	if res.Counters.RiskRejections > 0 {
		fmt.Printf("  Risk:      %d rejected entries\n", res.Counters.RiskRejections)
	}
	if res.HaltBar >= 0 {
		fmt.Printf("  HALTED at bar %d: %s\n", res.HaltBar, res.HaltReason)
	}
	if len(res.Faults) > 0 {
		fmt.Printf("  Faults:    %d strategy calls failed\n", len(res.Faults))
	}
}
