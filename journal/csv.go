package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader = []string{"trade_id", "instrument", "side", "strategy", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	pnlHeader   = []string{"time", "realized_pl", "open_positions", "trades"}
)

type CSVJournal struct {
	trades *csv.Writer
	pnl    *csv.Writer
	tf, pf *os.File
}

func NewCSV(tradesPath, pnlPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	pf, err := os.Create(pnlPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	pw := csv.NewWriter(pf)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := pw.Write(pnlHeader); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	pw.Flush()
	if err := pw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{trades: tw, pnl: pw, tf: tf, pf: pf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Instrument,
		t.Side.String(),
		t.Strategy,
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339Nano),
		t.CloseTime.Format(time.RFC3339Nano),
		f(t.RealizedPL),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordPnL(p PnLSnapshot) error {
	err := j.pnl.Write([]string{
		p.Time.Format(time.RFC3339Nano),
		f(p.RealizedPL),
		strconv.Itoa(p.OpenPositions),
		strconv.Itoa(p.Trades),
	})
	if err != nil {
		return err
	}

	j.pnl.Flush()
	return j.pnl.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.pnl.Flush()
	if err := j.pnl.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.pf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
