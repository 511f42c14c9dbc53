package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	order_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL,
	pnl REAL,
	leverage INTEGER NOT NULL,
	virtual INTEGER NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	opened_at DATETIME NOT NULL,
	closed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);

CREATE TABLE IF NOT EXISTS signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	side TEXT NOT NULL,
	score REAL NOT NULL,
	entry REAL NOT NULL,
	take_profit REAL NOT NULL,
	stop_loss REAL NOT NULL,
	leverage INTEGER NOT NULL,
	strategy TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at);
`
