package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
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
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, instrument, side, strategy, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Instrument, t.Side.String(), t.Strategy, t.EntryPrice,
		t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordPnL(p PnLSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO pnl
		(time, realized_pl, open_positions, trades)
		VALUES (?, ?, ?, ?)`,
		p.Time.UTC(), p.RealizedPL, p.OpenPositions, p.Trades,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
