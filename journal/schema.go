package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	final_value REAL NOT NULL,
	return_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	warmup_bars INTEGER NOT NULL,
	total_bars INTEGER NOT NULL,
	halt_bar INTEGER NOT NULL,
	halt_reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	trade_id INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	direction TEXT NOT NULL,
	amount REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	fees REAL NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	price REAL NOT NULL,
	value REAL NOT NULL,
	regime TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
