// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	strategy TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);

CREATE TABLE IF NOT EXISTS pnl (
	time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	open_positions INTEGER NOT NULL,
	trades INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pnl_time ON pnl(time);
`
