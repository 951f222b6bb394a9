// journal/journal.go
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tickledger/market"
)

// TradeRecord is one closed position. Immutable once written.
type TradeRecord struct {
	TradeID    string      `json:"trade_id"`
	Instrument string      `json:"instrument"`
	Side       market.Side `json:"side"`
	Strategy   string      `json:"strategy"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	OpenTime   time.Time   `json:"open_time"`
	CloseTime  time.Time   `json:"close_time"`
	RealizedPL float64     `json:"realized_pl"`
	Reason     string      `json:"reason"`
}

// PnLSnapshot is the ledger's running total after a close.
type PnLSnapshot struct {
	Time          time.Time
	RealizedPL    float64
	OpenPositions int
	Trades        int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordPnL(PnLSnapshot) error
	Close() error
}

// Open builds the journal named by kind: "csv", "sqlite" or "none".
func Open(kind, tradesFile, pnlFile, dbPath string) (Journal, error) {
	switch kind {
	case "csv":
		return NewCSV(tradesFile, pnlFile)
	case "sqlite":
		return NewSQLite(dbPath)
	case "", "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", kind)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error { return nil }
func (Discard) RecordPnL(PnLSnapshot) error   { return nil }
func (Discard) Close() error                  { return nil }
