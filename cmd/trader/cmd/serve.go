package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tickledger/feed"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay a CSV export as a tick server",
	Long: `Listen for one client and stream the rows of a CSV export to it as JSON
lines, oldest first, one row per interval, followed by EOD.

Example:
  trader serve --csv option_data.csv --symbol NIFTY_CE250500_31072025 --interval 1s`,
	RunE: runServe,
}

var serveFlags struct {
	csv      string
	listen   string
	symbol   string
	interval string
	noStamp  bool
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVar(&serveFlags.csv, "csv", "", "CSV file to replay")
	f.StringVar(&serveFlags.listen, "listen", "", "listen address")
	f.StringVar(&serveFlags.symbol, "symbol", "", "overwrite the SYMBOL column")
	f.StringVar(&serveFlags.interval, "interval", "", "delay between rows, e.g. 3s")
	f.BoolVar(&serveFlags.noStamp, "keep-date", false, "send the DATE column unchanged")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if serveFlags.csv != "" {
		cfg.Feed.CSV = serveFlags.csv
	}
	if serveFlags.listen != "" {
		cfg.Feed.ListenAddr = serveFlags.listen
	}
	if serveFlags.symbol != "" {
		cfg.Feed.Symbol = serveFlags.symbol
	}
	if serveFlags.interval != "" {
		cfg.Feed.Interval = serveFlags.interval
	}
	if serveFlags.noStamp {
		cfg.Feed.StampDate = false
	}
	if cfg.Feed.CSV == "" {
		return errors.New("a CSV file is required (--csv or feed.csv)")
	}

	interval, err := cfg.Feed.IntervalDuration()
	if err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}

	rows, err := feed.LoadCSV(cfg.Feed.CSV, feed.CSVOptions{Symbol: cfg.Feed.Symbol, SortByDate: true})
	if err != nil {
		return err
	}

	srv := &feed.Server{
		Addr:      cfg.Feed.ListenAddr,
		Rows:      rows,
		Interval:  interval,
		StampDate: cfg.Feed.StampDate,
		Log:       logrus.WithField("cmd", "serve"),
	}
	if err := srv.ListenAndServe(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
