package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tickledger/config"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Fan live ticks out to strategies and keep a positions ledger",
	Long: `Trader reads a stream of JSON ticks, hands every tick to each configured
strategy, and keeps a single-writer ledger of open positions that closes
them automatically on target or stop.

It provides tools for:
  - Running the pipeline against a TCP tick server or a file
  - Replaying a CSV export as a tick server
  - Querying the trade journal
  - Generating and validating configuration files`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config and TRADER_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

// SetupLogger configures the standard logrus logger. Unknown levels fall
// back to info.
func SetupLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// loadConfig loads --config (or defaults), applies TRADER_* overrides and
// the logging flags, then sets up the logger. Validation is left to the
// caller so command flags can be applied first.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	SetupLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
