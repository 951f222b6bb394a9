package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tickledger/market"
)

const tradeColumns = `trade_id, instrument, side, strategy, entry_price, exit_price, open_time, close_time, realized_pl, reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (TradeRecord, error) {
	var (
		rec  TradeRecord
		side string
	)
	err := r.Scan(
		&rec.TradeID,
		&rec.Instrument,
		&side,
		&rec.Strategy,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	if rec.Side, err = market.ParseSide(side); err != nil {
		return TradeRecord{}, fmt.Errorf("trade %s: %w", rec.TradeID, err)
	}
	return rec, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade in the order it was recorded.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	return j.queryTrades(`SELECT ` + tradeColumns + ` FROM trades ORDER BY rowid ASC`)
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
// Times are stored in UTC, so bounds in any location compare correctly.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, rowid ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPnL returns the running PnL snapshots in time order.
func (j *SQLite) ListPnL() ([]PnLSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, realized_pl, open_positions, trades
		FROM pnl
		ORDER BY time ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PnLSnapshot
	for rows.Next() {
		var p PnLSnapshot
		if err := rows.Scan(&p.Time, &p.RealizedPL, &p.OpenPositions, &p.Trades); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates a set of trades.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64
	RealizedPL   float64
	ProfitFactor float64
}

// Summarize computes win/loss counts and profit factor. ProfitFactor is
// +Inf when there are profits and no losses, 0 when there are neither.
func Summarize(trades []TradeRecord) Summary {
	var s Summary
	for _, t := range trades {
		s.Trades++
		s.RealizedPL += t.RealizedPL
		switch {
		case t.RealizedPL > 0:
			s.Wins++
			s.GrossProfit += t.RealizedPL
		case t.RealizedPL < 0:
			s.Losses++
			s.GrossLoss += -t.RealizedPL
		}
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}
