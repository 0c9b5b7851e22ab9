package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// TradeRow mirrors the trades table.
type TradeRow struct {
	RunID      string
	TradeID    int
	Strategy   string
	Direction  string
	Amount     float64
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Fees       float64
	RealizedPL float64
	Reason     string
}

// EquityRow mirrors the equity table.
type EquityRow struct {
	RunID  string
	Time   time.Time
	Price  float64
	Value  float64
	Regime string
}

// GetRun returns the headline row for one run.
func (j *SQLite) GetRun(runID string) (RunRow, error) {
	var row RunRow
	err := j.db.QueryRow(`
		SELECT run_id, created, symbol, initial_capital, final_value, return_pct,
		       max_drawdown_pct, trades, wins, losses, warmup_bars, total_bars,
		       halt_bar, halt_reason
		FROM runs WHERE run_id = ?`, runID).Scan(
		&row.RunID, &row.Created, &row.Symbol, &row.InitialCapital,
		&row.FinalValue, &row.ReturnPct, &row.MaxDrawdownPct, &row.Trades,
		&row.Wins, &row.Losses, &row.WarmupBars, &row.TotalBars,
		&row.HaltBar, &row.HaltReason,
	)
	if err == sql.ErrNoRows {
		return RunRow{}, fmt.Errorf("run %q not found", runID)
	}
	return row, err
}

// ListRuns returns every recorded run, newest first. ULIDs sort by creation
// time, so run_id ordering is creation ordering.
func (j *SQLite) ListRuns() ([]RunRow, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, symbol, initial_capital, final_value, return_pct,
		       max_drawdown_pct, trades, wins, losses, warmup_bars, total_bars,
		       halt_bar, halt_reason
		FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(
			&row.RunID, &row.Created, &row.Symbol, &row.InitialCapital,
			&row.FinalValue, &row.ReturnPct, &row.MaxDrawdownPct, &row.Trades,
			&row.Wins, &row.Losses, &row.WarmupBars, &row.TotalBars,
			&row.HaltBar, &row.HaltReason,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListTradesByRun returns a run's trades in close order.
func (j *SQLite) ListTradesByRun(runID string) ([]TradeRow, error) {
	rows, err := j.db.Query(`
		SELECT run_id, trade_id, strategy, direction, amount, entry_time,
		       exit_time, entry_price, exit_price, fees, realized_pl, reason
		FROM trades WHERE run_id = ? ORDER BY exit_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var tr TradeRow
		if err := rows.Scan(
			&tr.RunID, &tr.TradeID, &tr.Strategy, &tr.Direction, &tr.Amount,
			&tr.EntryTime, &tr.ExitTime, &tr.EntryPrice, &tr.ExitPrice,
			&tr.Fees, &tr.RealizedPL, &tr.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in time order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquityRow, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, price, value, regime
		FROM equity WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRow
	for rows.Next() {
		var p EquityRow
		if err := rows.Scan(&p.RunID, &p.Time, &p.Price, &p.Value, &p.Regime); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
