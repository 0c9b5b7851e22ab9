package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quantsim",
	Short: "A multi-strategy backtest engine for historical market data",
	Long: `Quantsim replays historical OHLCV candles through a simulated exchange
and a regime-routed set of trading strategies.

It provides tools for:
  - Backtesting single symbols over CSV, kline-JSON or synthetic data
  - Running multi-symbol portfolios with static capital allocation
  - Multi-timeframe candle aggregation without lookahead
  - Risk-gated position sizing with drawdown circuit breakers
  - Journaling runs, trades and equity curves to CSV or SQLite`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
