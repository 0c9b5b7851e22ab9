package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantsim/backtest"
	"github.com/rustyeddy/quantsim/regime"
	"github.com/rustyeddy/quantsim/strategies"
)

func sampleResult(t *testing.T) *backtest.RunResult {
	t.Helper()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &backtest.RunResult{
		Symbol:         "BTC/USDT",
		InitialCapital: decimal.NewFromInt(10000),
		FinalValue:     decimal.NewFromInt(10450),
		ReturnPct:      4.5,
		MaxDrawdownPct: 2.0,
		HaltBar:        -1,
		WarmupBars:     50,
		TotalBars:      200,
		Trades: []backtest.TradeRecord{
			{
				ID: 1, Strategy: "ema-cross", Direction: strategies.Long,
				Amount:     decimal.NewFromFloat(0.1),
				EntryTime:  start, ExitTime: start.Add(time.Hour),
				EntryPrice: decimal.NewFromInt(45000),
				ExitPrice:  decimal.NewFromInt(46000),
				Fees:       decimal.NewFromFloat(9.1),
				PnL:        decimal.NewFromFloat(90.9),
				Reason:     "take-profit",
			},
			{
				ID: 2, Strategy: "ema-cross", Direction: strategies.Short,
				Amount:     decimal.NewFromFloat(0.05),
				EntryTime:  start.Add(2 * time.Hour), ExitTime: start.Add(3 * time.Hour),
				EntryPrice: decimal.NewFromInt(46000),
				ExitPrice:  decimal.NewFromInt(46500),
				Fees:       decimal.NewFromFloat(4.6),
				PnL:        decimal.NewFromFloat(-29.6),
				Reason:     "stop-loss",
			},
		},
		Equity: []backtest.EquityPoint{
			{Time: start, Price: decimal.NewFromInt(45000), Value: decimal.NewFromInt(10000), Regime: regime.Trending},
			{Time: start.Add(time.Hour), Price: decimal.NewFromInt(46000), Value: decimal.NewFromInt(10090), Regime: regime.Trending},
		},
	}
}

func TestSQLiteRecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	runID, err := j.RecordRun(sampleResult(t))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	row, err := j.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", row.Symbol)
	assert.Equal(t, 2, row.Trades)
	assert.Equal(t, 1, row.Wins)
	assert.Equal(t, 1, row.Losses)
	assert.Equal(t, -1, row.HaltBar)
	assert.InDelta(t, 4.5, row.ReturnPct, 1e-9)

	trades, err := j.ListTradesByRun(runID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "long", trades[0].Direction)
	assert.Equal(t, "take-profit", trades[0].Reason)
	assert.InDelta(t, -29.6, trades[1].RealizedPL, 1e-9)

	equity, err := j.ListEquityByRun(runID)
	require.NoError(t, err)
	require.Len(t, equity, 2)
	assert.Equal(t, "trending", equity[0].Regime)
	assert.InDelta(t, 10090, equity[1].Value, 1e-9)

	_, err = j.GetRun("nope")
	assert.Error(t, err)
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	first, err := j.RecordRun(sampleResult(t))
	require.NoError(t, err)
	second, err := j.RecordRun(sampleResult(t))
	require.NoError(t, err)

	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].RunID, "ULIDs sort by creation time")
	assert.Equal(t, first, runs[1].RunID)
}

func TestCSVRecordRun(t *testing.T) {
	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	runID, err := j.RecordRun(sampleResult(t))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, runID+"_trades.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two trades")
	assert.Equal(t, "ema-cross", rows[1][1])
	assert.Equal(t, "short", rows[2][2])

	ef, err := os.Open(filepath.Join(dir, runID+"_equity.csv"))
	require.NoError(t, err)
	defer ef.Close()
	eq, err := csv.NewReader(ef).ReadAll()
	require.NoError(t, err)
	assert.Len(t, eq, 3)

	// Second run appends to the shared index, keeping one header.
	_, err = j.RecordRun(sampleResult(t))
	require.NoError(t, err)
	rf, err := os.Open(filepath.Join(dir, "runs.csv"))
	require.NoError(t, err)
	defer rf.Close()
	index, err := csv.NewReader(rf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, index, 3)
	assert.Equal(t, "run_id", index[0][0])
}
