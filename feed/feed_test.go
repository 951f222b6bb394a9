package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tickledger/market"
)

func nullLog() *logrus.Entry {
	logger, _ := logrustest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func collect(out chan market.Message) []market.Message {
	close(out)
	var got []market.Message
	for m := range out {
		got = append(got, m)
	}
	return got
}

func TestReadLinesStopsAtEOD(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("{\"a\":1}\n\n  {\"a\":2}  \nEOD\n{\"a\":3}\n")
	out := make(chan market.Message, 10)

	require.NoError(t, ReadLines(context.Background(), in, out, nullLog()))

	got := collect(out)
	require.Len(t, got, 3)
	assert.Equal(t, `{"a":1}`, string(got[0].Payload))
	assert.Equal(t, `{"a":2}`, string(got[1].Payload))
	assert.True(t, got[2].IsEOD())
}

func TestReadLinesEODWithoutNewline(t *testing.T) {
	t.Parallel()

	out := make(chan market.Message, 10)
	require.NoError(t, ReadLines(context.Background(), strings.NewReader("x\nEOD"), out, nullLog()))

	got := collect(out)
	require.Len(t, got, 2)
	assert.True(t, got[1].IsEOD())
}

func TestReadLinesEOFIsEOD(t *testing.T) {
	t.Parallel()

	out := make(chan market.Message, 10)
	require.NoError(t, ReadLines(context.Background(), strings.NewReader("x\ny\n"), out, nullLog()))

	got := collect(out)
	require.Len(t, got, 3)
	assert.True(t, got[2].IsEOD())
}

func TestReadLinesPayloadIsNotDataEOD(t *testing.T) {
	t.Parallel()

	out := make(chan market.Message, 10)
	require.NoError(t, ReadLines(context.Background(), strings.NewReader("\"EOD\"\nEOD\n"), out, nullLog()))

	got := collect(out)
	require.Len(t, got, 2)
	assert.Equal(t, market.Data, got[0].Kind)
	assert.True(t, got[1].IsEOD())
}

func TestReadLinesReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("x\n"), iotest.ErrReader(boom))
	out := make(chan market.Message, 10)

	err := ReadLines(context.Background(), r, out, nullLog())
	require.ErrorIs(t, err, boom)

	got := collect(out)
	require.Len(t, got, 2)
	assert.Equal(t, "x", string(got[0].Payload))
	assert.True(t, got[1].IsEOD())
}

func TestReadLinesSkipsOversizedLine(t *testing.T) {
	t.Parallel()

	logger, hook := logrustest.NewNullLogger()
	huge := strings.Repeat("a", MaxLineSize+10)
	in := strings.NewReader("x\n" + huge + "\ny\nEOD\n")
	out := make(chan market.Message, 10)

	require.NoError(t, ReadLines(context.Background(), in, out, logrus.NewEntry(logger)))

	got := collect(out)
	require.Len(t, got, 3)
	assert.Equal(t, "x", string(got[0].Payload))
	assert.Equal(t, "y", string(got[1].Payload))
	assert.True(t, got[2].IsEOD())

	var skipped int
	for _, e := range hook.AllEntries() {
		if e.Message == "skipping oversized line" {
			skipped++
		}
	}
	assert.Equal(t, 1, skipped)
}

func TestReadLinesOversizedLastLine(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("x\n" + strings.Repeat("b", MaxLineSize*2))
	out := make(chan market.Message, 10)

	require.NoError(t, ReadLines(context.Background(), in, out, nullLog()))

	got := collect(out)
	require.Len(t, got, 2)
	assert.Equal(t, "x", string(got[0].Payload))
	assert.True(t, got[1].IsEOD())
}

func TestReadLinesCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and never read: ReadLines must not block.
	out := make(chan market.Message)
	err := ReadLines(ctx, strings.NewReader("x\ny\n"), out, nullLog())
	assert.ErrorIs(t, err, context.Canceled)
}

const sampleCSV = `SYMBOL ,DATE ,EXPIRY ,OPTION TYPE ,CLOSE PRICE ,OPEN PRICE ,NO. OF CONTRACTS
NIFTY,03-Jul-2025,31-Jul-2025,CE,120.5,110,1000
NIFTY,01-Jul-2025,31-Jul-2025,CE,100,95,"1,200"
NIFTY,02-Jul-2025,31-Jul-2025,CE,-,99,900
`

func TestReadCSV(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{Symbol: "NIFTY_CE", SortByDate: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "01-Jul-2025", rows[0]["DATE "])
	assert.Equal(t, "02-Jul-2025", rows[1]["DATE "])
	assert.Equal(t, "03-Jul-2025", rows[2]["DATE "])
	assert.Equal(t, "NIFTY_CE", rows[0]["SYMBOL "])
	assert.Equal(t, 100.0, rows[0]["CLOSE PRICE "])
	assert.Equal(t, "1,200", rows[0]["NO. OF CONTRACTS"])
}

func TestReadCSVKeepsOrderWithoutSort(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "NIFTY", rows[0]["SYMBOL "])
	assert.Equal(t, 120.5, rows[0]["CLOSE PRICE "])
}

func TestStreamRowsDecodeAsTicks(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{SortByDate: true})
	require.NoError(t, err)

	at := time.Date(2025, 7, 1, 9, 15, 0, 0, time.UTC)
	srv := &Server{Rows: rows, StampDate: true, Log: nullLog(), now: func() time.Time { return at }}

	var buf bytes.Buffer
	require.NoError(t, srv.Stream(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, EODLine, lines[3])

	tick, err := market.DecodeTick([]byte(lines[0]))
	require.NoError(t, err)
	assert.Equal(t, "NIFTY", tick.Identifier)
	assert.InDelta(t, 100.0, tick.Close, 1e-9)
	assert.InDelta(t, 1200.0, tick.Volume, 1e-9)
	assert.Equal(t, "CE", tick.OptionType)
	assert.Equal(t, "2025-07-01 09:15:00", tick.Date)

	dash, err := market.DecodeTick([]byte(lines[1]))
	require.NoError(t, err)
	assert.Zero(t, dash.Close)
}

func TestServerToTCPSource(t *testing.T) {
	t.Parallel()

	rows, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := &Server{Rows: rows, Interval: time.Millisecond, Log: nullLog()}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	out := make(chan market.Message, 10)
	require.NoError(t, TCP(ln.Addr().String(), nullLog())(ctx, out))
	require.NoError(t, <-served)

	got := collect(out)
	require.Len(t, got, 4)
	for _, m := range got[:3] {
		_, err := market.DecodeTick(m.Payload)
		assert.NoError(t, err)
	}
	assert.True(t, got[3].IsEOD())
}

func TestTCPSourceDialFailureEndsDay(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	out := make(chan market.Message, 1)
	err = TCP(addr, nullLog())(context.Background(), out)
	require.Error(t, err)

	got := collect(out)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsEOD())
}

func TestServeCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&Server{Log: nullLog()}).Serve(ctx, ln) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestLoadExampleExport(t *testing.T) {
	t.Parallel()

	rows, err := LoadCSV("../examples/data/option_data.csv", CSVOptions{Symbol: "NIFTY_CE250500_31072025", SortByDate: true})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var buf bytes.Buffer
	require.NoError(t, (&Server{Rows: rows, Log: nullLog()}).Stream(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(rows)+1)
	for _, l := range lines[:len(rows)] {
		tick, err := market.DecodeTick([]byte(l))
		require.NoError(t, err)
		assert.Equal(t, "NIFTY_CE250500_31072025", tick.Identifier)
		assert.Equal(t, "CE", tick.OptionType)
		assert.Positive(t, tick.Close)
		assert.Positive(t, tick.Volume)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV("does-not-exist.csv", CSVOptions{})
	assert.Error(t, err)
}
