package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tickledger/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from SQLite database.

Subcommands:
  trade    - Get details of a specific trade by ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  summary  - Win/loss and PnL totals
  pnl      - Running realized PnL after each close

Examples:
  trader journal trade <trade-id>
  trader journal today
  trader journal day 2024-01-15
  trader journal summary --day 2024-01-15
  trader journal pnl`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize closed trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var journalPnLCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Show realized PnL after each close",
	Args:  cobra.NoArgs,
	RunE:  runJournalPnL,
}

var (
	journalDBPath     string
	journalSummaryDay string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)
	journalCmd.AddCommand(journalPnLCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./trader.db", "path to SQLite journal DB")
	journalSummaryCmd.Flags().StringVar(&journalSummaryDay, "day", "", "only trades closed on YYYY-MM-DD")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0])
}

func listDay(cmd *cobra.Command, day string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	var recs []journal.TradeRecord
	if journalSummaryDay != "" {
		start, end, derr := dayBounds(time.Local, journalSummaryDay)
		if derr != nil {
			return fmt.Errorf("date: %w", derr)
		}
		recs, err = j.ListTradesClosedBetween(start, end)
	} else {
		recs, err = j.ListTrades()
	}
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatSummaryOrg(journal.Summarize(recs)))
	return nil
}

func runJournalPnL(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	snaps, err := j.ListPnL()
	if err != nil {
		return fmt.Errorf("query pnl: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPnLOrg(snaps))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
