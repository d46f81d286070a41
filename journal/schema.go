package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	micro_timeframe TEXT NOT NULL,
	macro_timeframe TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config BLOB,
	fee_rate REAL NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	days REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	net_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	trades_per_day REAL NOT NULL,
	profit_factor REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	fees REAL NOT NULL,
	open_unrealized REAL NOT NULL,
	org_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	gross_pl REAL NOT NULL,
	fees REAL NOT NULL,
	realized_pl REAL NOT NULL,
	balance REAL NOT NULL,
	reason TEXT NOT NULL,
	regime TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, close_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(run_id, time);
`
