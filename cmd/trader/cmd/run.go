package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tickledger/feed"
	"github.com/rustyeddy/tickledger/journal"
	"github.com/rustyeddy/tickledger/ledger"
	"github.com/rustyeddy/tickledger/pipeline"
	"github.com/rustyeddy/tickledger/status"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tick pipeline until end of day",
	Long: `Connect to a tick server (or read a file of JSON lines), fan every tick
out to the configured strategies and keep the positions ledger until the
stream ends. The trade log and realized PnL are printed on exit.

Examples:
  trader run --addr 127.0.0.1:65432 --strategies BollingerMeanReversion,VolumeFade
  trader run --file ticks.jsonl --journal sqlite --db trades.db
  trader run -c trader.yaml --status :9898`,
	RunE: runRun,
}

var runFlags struct {
	addr        string
	file        string
	strategies  []string
	buffer      int
	journalType string
	dbPath      string
	statusAddr  string
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&runFlags.addr, "addr", "", "tick server address")
	f.StringVar(&runFlags.file, "file", "", "read JSON lines from a file instead (- for stdin)")
	f.StringSliceVarP(&runFlags.strategies, "strategies", "s", nil, "strategy names")
	f.IntVar(&runFlags.buffer, "buffer", 0, "channel capacity")
	f.StringVar(&runFlags.journalType, "journal", "", "journal type: csv, sqlite or none")
	f.StringVar(&runFlags.dbPath, "db", "", "SQLite journal path")
	f.StringVar(&runFlags.statusAddr, "status", "", "serve the status dashboard on this address")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if runFlags.addr != "" {
		cfg.Feed.Addr = runFlags.addr
	}
	if runFlags.file != "" {
		cfg.Feed.File = runFlags.file
	}
	if len(runFlags.strategies) > 0 {
		cfg.Pipeline.Strategies = runFlags.strategies
	}
	if runFlags.buffer > 0 {
		cfg.Pipeline.Buffer = runFlags.buffer
	}
	if runFlags.journalType != "" {
		cfg.Journal.Type = runFlags.journalType
	}
	if runFlags.dbPath != "" {
		cfg.Journal.DBPath = runFlags.dbPath
	}
	if runFlags.statusAddr != "" {
		cfg.Status.Enabled = true
		cfg.Status.Addr = runFlags.statusAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logrus.WithField("cmd", "run")

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.TradesFile, cfg.Journal.PnLFile, cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			log.WithError(err).Error("close journal")
		}
	}()

	l := ledger.New(
		ledger.WithLogger(log.WithField("component", "ledger")),
		ledger.WithJournal(j),
		ledger.WithBuffer(cfg.Pipeline.Buffer),
	)
	p := pipeline.New(l, cfg.Pipeline.Strategies,
		pipeline.WithLogger(log.WithField("component", "pipeline")),
		pipeline.WithBuffer(cfg.Pipeline.Buffer),
	)

	ctx := cmd.Context()

	if cfg.Status.Enabled {
		statusCtx, stopStatus := context.WithCancel(ctx)
		defer stopStatus()
		srv := status.NewServer(cfg.Status.Addr, l, log.WithField("component", "status"))
		go func() {
			if err := srv.Run(statusCtx); err != nil {
				log.WithError(err).Error("status server")
			}
		}()
	}

	var src pipeline.Source
	switch {
	case cfg.Feed.File == "-":
		src = feed.Reader(cmd.InOrStdin(), log.WithField("component", "feed"))
	case cfg.Feed.File != "":
		fh, err := os.Open(cfg.Feed.File)
		if err != nil {
			return fmt.Errorf("open feed file: %w", err)
		}
		defer fh.Close()
		src = feed.Reader(fh, log.WithField("component", "feed"))
	default:
		src = feed.TCP(cfg.Feed.Addr, log.WithField("component", "feed"))
	}

	runErr := p.Run(ctx, src)

	printTradeLog(cmd.OutOrStdout(), l.TradeLog(), l.RealizedPnL())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("pipeline: %w", runErr)
	}
	return nil
}

func printTradeLog(w io.Writer, trades []journal.TradeRecord, realized float64) {
	fmt.Fprintln(w, "[Trade Log Summary]")
	for _, t := range trades {
		fmt.Fprintf(w, "  %s %-5s %-24s entry=%.2f exit=%.2f pnl=%.2f %s\n",
			t.Instrument, t.Side, t.Strategy, t.EntryPrice, t.ExitPrice, t.RealizedPL, t.Reason)
	}
	if len(trades) == 0 {
		fmt.Fprintln(w, "  no trades")
	}
	fmt.Fprintf(w, "Total Realized PnL: %.2f\n", realized)
}
