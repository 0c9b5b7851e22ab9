package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/config"
	"github.com/rustyeddy/quantsim/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Backtest every configured symbol as one portfolio",
	Long: `Run all configured symbols concurrently under a shared capital pool.

Each symbol gets min(max_pair_fraction, 1/N) of the capital and its own
independent simulation; results are merged into a portfolio report.

Example:
  quantsim portfolio -f examples/configs/majors.yaml`,
	RunE: runPortfolio,
}

var portfolioConfigPath string

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVarP(&portfolioConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	portfolioCmd.MarkFlagRequired("config")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(portfolioConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	series, err := loadSeries(cfg)
	if err != nil {
		return err
	}
	comp, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	pcfg, err := cfg.PortfolioConfig()
	if err != nil {
		return err
	}

	runner, err := portfolio.NewRunner(pcfg, comp)
	if err != nil {
		return err
	}
	res, err := runner.Run(context.Background(), series)
	if err != nil {
		return err
	}

	fmt.Printf("Portfolio: %d symbols, %s allocated each, done in %s\n",
		len(res.Symbols), res.Allocation, res.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Value:           %s -> %s (%.2f%%)\n",
		res.TotalCapital, res.FinalValue(), res.ReturnPct())
	fmt.Printf("  Sharpe:          %.2f\n", res.Sharpe)
	fmt.Printf("  Max drawdown:    %.2f%%\n", res.MaxDrawdownPct)
	fmt.Printf("  Diversification: %.2f (mean pairwise correlation)\n", res.Diversification)
	fmt.Printf("  Best/Worst:      %s / %s, %d of %d profitable\n",
		res.Best, res.Worst, res.ProfitableCount, len(res.Symbols))
	for _, sym := range res.Completed() {
		sr := res.Symbols[sym]
		fmt.Printf("    %-10s %8.2f%%  %3d trades\n", sym, sr.ReturnPct, len(sr.Trades))
	}
	for sym, serr := range res.Failed {
		fmt.Printf("    %-10s FAILED: %v\n", sym, serr)
	}

	if j, err := openJournal(cfg); err != nil {
		return err
	} else if j != nil {
		defer j.Close()
		for _, sym := range res.Completed() {
			runID, err := j.RecordRun(res.Symbols[sym])
			if err != nil {
				return fmt.Errorf("journal %s: %w", sym, err)
			}
			fmt.Printf("  Journaled %s as run %s\n", sym, runID)
		}
	}
	return nil
}
