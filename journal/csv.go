package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/internal/id"
)

// CSV writes one trades file and one equity file per run into a directory,
// plus an append-only runs.csv index.
type CSV struct {
	dir string
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSV{dir: dir}, nil
}

func (j *CSV) RecordRun(res *backtest.RunResult) (string, error) {
	runID := id.New()

	if err := j.appendRunRow(summarize(runID, res)); err != nil {
		return "", err
	}
	if err := j.writeTrades(runID, res); err != nil {
		return "", err
	}
	if err := j.writeEquity(runID, res); err != nil {
		return "", err
	}
	return runID, nil
}

func (j *CSV) Close() error { return nil }

func (j *CSV) appendRunRow(row RunRow) error {
	path := filepath.Join(j.dir, "runs.csv")
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write([]string{
			"run_id", "created", "symbol", "initial_capital", "final_value",
			"return_pct", "max_drawdown_pct", "trades", "wins", "losses",
			"warmup_bars", "total_bars", "halt_bar", "halt_reason",
		}); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		row.RunID,
		row.Created.Format(time.RFC3339),
		row.Symbol,
		f64(row.InitialCapital),
		f64(row.FinalValue),
		f64(row.ReturnPct),
		f64(row.MaxDrawdownPct),
		strconv.Itoa(row.Trades),
		strconv.Itoa(row.Wins),
		strconv.Itoa(row.Losses),
		strconv.Itoa(row.WarmupBars),
		strconv.Itoa(row.TotalBars),
		strconv.Itoa(row.HaltBar),
		row.HaltReason,
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) writeTrades(runID string, res *backtest.RunResult) error {
	f, err := os.Create(filepath.Join(j.dir, fmt.Sprintf("%s_trades.csv", runID)))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"trade_id", "strategy", "direction", "amount", "entry_time",
		"exit_time", "entry_price", "exit_price", "fees", "realized_pl", "reason",
	}); err != nil {
		return err
	}
	for _, tr := range res.Trades {
		if err := w.Write([]string{
			strconv.Itoa(tr.ID),
			tr.Strategy,
			tr.Direction.String(),
			dec(tr.Amount),
			tr.EntryTime.Format(time.RFC3339),
			tr.ExitTime.Format(time.RFC3339),
			dec(tr.EntryPrice),
			dec(tr.ExitPrice),
			dec(tr.Fees),
			dec(tr.PnL),
			tr.Reason,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) writeEquity(runID string, res *backtest.RunResult) error {
	f, err := os.Create(filepath.Join(j.dir, fmt.Sprintf("%s_equity.csv", runID)))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "price", "value", "regime"}); err != nil {
		return err
	}
	for _, p := range res.Equity {
		if err := w.Write([]string{
			p.Time.Format(time.RFC3339),
			dec(p.Price),
			dec(p.Value),
			string(p.Regime),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func dec(d decimal.Decimal) string { return d.String() }
