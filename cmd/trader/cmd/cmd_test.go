package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "BollingerMeanReversion")
}

func TestRunFromFileThenQueryJournal(t *testing.T) {
	dir := t.TempDir()
	ticks := filepath.Join(dir, "ticks.jsonl")
	db := filepath.Join(dir, "trades.db")

	lines := []string{
		`{"SYMBOL ":"X","CLOSE PRICE ":100}`,
		`{"SYMBOL ":"X","CLOSE PRICE ":102}`,
		`not a tick`,
		`{"SYMBOL ":"X","CLOSE PRICE ":108}`,
		`{"SYMBOL ":"X","CLOSE PRICE ":111}`,
		`EOD`,
	}
	require.NoError(t, os.WriteFile(ticks, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	out, err := execute(t, "run",
		"--file", ticks,
		"--strategies", "OpenOnce",
		"--journal", "sqlite",
		"--db", db,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "[Trade Log Summary]")
	assert.Contains(t, out, "entry=100.00 exit=111.00 pnl=11.00 TakeProfit")
	assert.Contains(t, out, "Total Realized PnL: 11.00")

	out, err = execute(t, "journal", "summary", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 | 1 | 0 | 11.00 | 0.00 |")

	out, err = execute(t, "journal", "today", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, ":INSTRUMENT: X")
	assert.Contains(t, out, ":STRATEGY: OpenOnce")

	out, err = execute(t, "journal", "pnl", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "| 11.00 | 0 | 1 |")
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	_, err := execute(t, "run", "--file", "unused.jsonl", "--strategies", "Nope", "--journal", "none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15T00:00:00Z", start.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2024-01-16T00:00:00Z", end.Format("2006-01-02T15:04:05Z07:00"))

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}
