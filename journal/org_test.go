package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/tickledger/market"
	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	closeT := time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC)

	trade := TradeRecord{
		TradeID:    "01HZX4K2ABCDEF",
		Instrument: "NIFTY_CE",
		Side:       market.Long,
		Strategy:   "BollingerMeanReversion",
		EntryPrice: 100,
		ExitPrice:  111,
		OpenTime:   open,
		CloseTime:  closeT,
		RealizedPL: 11,
		Reason:     "TakeProfit",
	}

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: NIFTY_CE LONG (01HZX4K2)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HZX4K2ABCDEF")
	assert.Contains(t, result, ":SIDE: LONG")
	assert.Contains(t, result, ":STRATEGY: BollingerMeanReversion")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.00")
	assert.Contains(t, result, ":EXIT_PRICE: 111.00")
	assert.Contains(t, result, ":OPEN_TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":REALIZED_PL: 11.00")
	assert.Contains(t, result, ":REASON: TakeProfit")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]TradeRecord{{TradeID: "a"}, {TradeID: "b"}})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatSummaryOrg(t *testing.T) {
	t.Parallel()

	out := FormatSummaryOrg(Summary{Trades: 2, Wins: 1, Losses: 1, GrossProfit: 11, GrossLoss: 5, ProfitFactor: 2.2, RealizedPL: 6})
	assert.Contains(t, out, "| 2 | 1 | 1 | 11.00 | 5.00 | 2.20 | 6.00 |")
}

func TestFormatPnLOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	out := FormatPnLOrg([]PnLSnapshot{
		{Time: at, RealizedPL: 11, OpenPositions: 2, Trades: 1},
		{Time: at.Add(time.Minute), RealizedPL: 6, OpenPositions: 1, Trades: 2},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "| 2024-01-15T09:30:00Z | 11.00 | 2 | 1 |", lines[2])
	assert.Equal(t, "| 2024-01-15T09:31:00Z | 6.00 | 1 | 2 |", lines[3])
}
