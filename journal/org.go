package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for pasting into a journal.
// Structured facts live in the PROPERTIES drawer for easy search; the
// narrative headings are left for the reader to fill in.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Instrument, t.Side, shortID(t.TradeID))
	open := t.OpenTime.UTC().Format(time.RFC3339)
	closed := t.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":INSTRUMENT: %s\n", t.Instrument))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", t.Side))
	b.WriteString(fmt.Sprintf(":STRATEGY: %s\n", t.Strategy))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.2f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.2f\n", t.ExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", closed))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", t.RealizedPL))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatSummaryOrg renders a Summary as an Org table.
func FormatSummaryOrg(s Summary) string {
	var b strings.Builder
	b.WriteString("| trades | wins | losses | gross profit | gross loss | profit factor | realized pl |\n")
	b.WriteString("|--------+------+--------+--------------+------------+---------------+-------------|\n")
	b.WriteString(fmt.Sprintf("| %d | %d | %d | %.2f | %.2f | %.2f | %.2f |\n",
		s.Trades, s.Wins, s.Losses, s.GrossProfit, s.GrossLoss, s.ProfitFactor, s.RealizedPL))
	return b.String()
}

// FormatPnLOrg renders the running PnL snapshots as an Org table.
func FormatPnLOrg(snaps []PnLSnapshot) string {
	var b strings.Builder
	b.WriteString("| time | realized pl | open positions | trades |\n")
	b.WriteString("|------+-------------+----------------+--------|\n")
	for _, p := range snaps {
		b.WriteString(fmt.Sprintf("| %s | %.2f | %d | %d |\n",
			p.Time.UTC().Format(time.RFC3339), p.RealizedPL, p.OpenPositions, p.Trades))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
