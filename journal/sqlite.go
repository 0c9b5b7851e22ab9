package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/internal/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordRun writes the run row plus every trade and equity point in one
// transaction, keyed by a fresh ULID.
func (j *SQLite) RecordRun(res *backtest.RunResult) (string, error) {
	runID := id.New()
	row := summarize(runID, res)

	tx, err := j.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs
		(run_id, created, symbol, initial_capital, final_value, return_pct,
		 max_drawdown_pct, trades, wins, losses, warmup_bars, total_bars,
		 halt_bar, halt_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RunID, row.Created, row.Symbol, row.InitialCapital, row.FinalValue,
		row.ReturnPct, row.MaxDrawdownPct, row.Trades, row.Wins, row.Losses,
		row.WarmupBars, row.TotalBars, row.HaltBar, row.HaltReason,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	tradeStmt, err := tx.Prepare(`
		INSERT INTO trades
		(run_id, trade_id, strategy, direction, amount, entry_time, exit_time,
		 entry_price, exit_price, fees, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer tradeStmt.Close()

	for _, tr := range res.Trades {
		amount, _ := tr.Amount.Float64()
		entry, _ := tr.EntryPrice.Float64()
		exit, _ := tr.ExitPrice.Float64()
		fees, _ := tr.Fees.Float64()
		pnl, _ := tr.PnL.Float64()
		if _, err := tradeStmt.Exec(
			runID, tr.ID, tr.Strategy, tr.Direction.String(), amount,
			tr.EntryTime, tr.ExitTime, entry, exit, fees, pnl, tr.Reason,
		); err != nil {
			return "", fmt.Errorf("insert trade %d: %w", tr.ID, err)
		}
	}

	eqStmt, err := tx.Prepare(`
		INSERT INTO equity (run_id, time, price, value, regime)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer eqStmt.Close()

	for _, p := range res.Equity {
		price, _ := p.Price.Float64()
		value, _ := p.Value.Float64()
		if _, err := eqStmt.Exec(runID, p.Time, price, value, string(p.Regime)); err != nil {
			return "", fmt.Errorf("insert equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
