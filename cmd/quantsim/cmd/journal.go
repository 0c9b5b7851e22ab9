package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantsim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect journaled runs in a SQLite database",
	Long: `Query a SQLite run journal.

Subcommands:
  runs         - List every recorded run
  show <runid> - Show one run with its trades

Examples:
  quantsim journal runs --db ./runs.db
  quantsim journal show 01J5... --db ./runs.db`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <runid>",
	Short: "Show one run's summary and trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "./runs.db", "path to SQLite journal database")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-10s  %8.2f%%  %3d trades  %s\n",
			r.RunID, r.Symbol, r.ReturnPct, r.Trades, r.Created.Format("2006-01-02 15:04"))
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	runID := args[0]
	row, err := j.GetRun(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s)\n", row.RunID, row.Symbol)
	fmt.Printf("  Capital:  %.2f -> %.2f (%.2f%%)\n", row.InitialCapital, row.FinalValue, row.ReturnPct)
	fmt.Printf("  Drawdown: %.2f%%\n", row.MaxDrawdownPct)
	fmt.Printf("  Trades:   %d (%d wins / %d losses)\n", row.Trades, row.Wins, row.Losses)
	if row.HaltBar >= 0 {
		fmt.Printf("  HALTED at bar %d: %s\n", row.HaltBar, row.HaltReason)
	}

	trades, err := j.ListTradesByRun(runID)
	if err != nil {
		return err
	}
	for _, tr := range trades {
		fmt.Printf("  #%-3d %-12s %-5s %10.6f @ %.4f -> %.4f  P/L %9.4f  %s\n",
			tr.TradeID, tr.Strategy, tr.Direction, tr.Amount,
			tr.EntryPrice, tr.ExitPrice, tr.RealizedPL, tr.Reason)
	}
	return nil
}
