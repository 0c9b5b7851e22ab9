// Package journal persists finished runs for later inspection. The core
// engine never imports it; journaling happens after a result exists.
package journal

import (
	"time"

	"github.com/rustyeddy/quantsim/backtest"
)

// RunRow mirrors the runs table: one line of headline figures per run.
type RunRow struct {
	RunID          string
	Created        time.Time
	Symbol         string
	InitialCapital float64
	FinalValue     float64
	ReturnPct      float64
	MaxDrawdownPct float64
	Trades         int
	Wins           int
	Losses         int
	WarmupBars     int
	TotalBars      int
	HaltBar        int
	HaltReason     string
}

// Journal records one symbol's finished run under a fresh run ID.
type Journal interface {
	RecordRun(res *backtest.RunResult) (runID string, err error)
	Close() error
}

// summarize flattens a result into its runs-table row. Decimal fields are
// converted to float64; the journal is for reporting, not accounting.
func summarize(runID string, res *backtest.RunResult) RunRow {
	initial, _ := res.InitialCapital.Float64()
	final, _ := res.FinalValue.Float64()

	wins := 0
	for _, tr := range res.Trades {
		if tr.PnL.IsPositive() {
			wins++
		}
	}

	return RunRow{
		RunID:          runID,
		Created:        time.Now().UTC(),
		Symbol:         res.Symbol,
		InitialCapital: initial,
		FinalValue:     final,
		ReturnPct:      res.ReturnPct,
		MaxDrawdownPct: res.MaxDrawdownPct,
		Trades:         len(res.Trades),
		Wins:           wins,
		Losses:         len(res.Trades) - wins,
		WarmupBars:     res.WarmupBars,
		TotalBars:      res.TotalBars,
		HaltBar:        res.HaltBar,
		HaltReason:     res.HaltReason,
	}
}
