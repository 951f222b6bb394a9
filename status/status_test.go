package status

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tickledger/journal"
	"github.com/rustyeddy/tickledger/ledger"
	"github.com/rustyeddy/tickledger/market"
)

func runLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	logger, _ := logrustest.NewNullLogger()
	l := ledger.New(ledger.WithLogger(logrus.NewEntry(logger)))
	go l.Run()

	in := l.Inbox()
	in <- ledger.OpenPosition{Instrument: "X", Signal: market.Buy, Price: 100, Target: 110, StopLoss: 90, Strategy: "s"}
	in <- ledger.OpenPosition{Instrument: "Y", Signal: market.Sell, Price: 50, Target: 40, StopLoss: 60, Strategy: "s"}
	in <- ledger.UpdatePrice{Instrument: "X", Price: 112}
	in <- ledger.UpdatePrice{Instrument: "Y", Price: 55}
	in <- ledger.EndOfDay{}
	<-l.Done()
	return l
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	rec := get(t, Router(runLedger(t), nil), "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	rec := get(t, Router(runLedger(t), nil), "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		Prices      map[string]float64 `json:"prices"`
		Open        []ledger.Position  `json:"open"`
		Trades      int                `json:"trades"`
		RealizedPnL float64            `json:"realized_pnl"`
		Stats       Stats              `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, map[string]float64{"X": 112, "Y": 55}, got.Prices)
	require.Len(t, got.Open, 1)
	assert.Equal(t, "Y", got.Open[0].Instrument)
	assert.Equal(t, market.Short, got.Open[0].Side)
	assert.Equal(t, 1, got.Trades)
	assert.InDelta(t, 12.0, got.RealizedPnL, 1e-9)
	assert.Equal(t, 1, got.Stats.Wins)
	assert.Nil(t, got.Stats.ProfitFactor)
}

// fixedSource serves a snapshot whose trade log differs from TradeLog(),
// as happens when a close lands between two reads.
type fixedSource struct {
	snap  ledger.Snapshot
	later []journal.TradeRecord
}

func (f fixedSource) Snapshot() ledger.Snapshot { return f.snap }
func (f fixedSource) TradeLog() []journal.TradeRecord { return f.later }

func TestSnapshotStatsMatchSnapshot(t *testing.T) {
	t.Parallel()

	first := journal.TradeRecord{TradeID: "a", Instrument: "X", RealizedPL: 10}
	src := fixedSource{
		snap: ledger.Snapshot{
			Prices:      map[string]float64{"X": 110},
			Trades:      1,
			RealizedPnL: 10,
			TradeLog:    []journal.TradeRecord{first},
		},
		later: []journal.TradeRecord{first, {TradeID: "b", Instrument: "X", RealizedPL: -4}},
	}

	rec := get(t, Router(src, nil), "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Trades)
	assert.Equal(t, got.Trades, got.Stats.Trades)
	assert.InDelta(t, got.RealizedPnL, got.Stats.RealizedPL, 1e-9)
	assert.Equal(t, 0, got.Stats.Losses)
}

func TestSnapshotEncodeFailureIs500(t *testing.T) {
	t.Parallel()

	logger, hook := logrustest.NewNullLogger()
	src := fixedSource{snap: ledger.Snapshot{Prices: map[string]float64{"X": math.Inf(1)}}}

	rec := get(t, Router(src, logrus.NewEntry(logger)), "/snapshot")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "encode response", hook.LastEntry().Message)
}

func TestTrades(t *testing.T) {
	t.Parallel()

	l := runLedger(t)
	h := Router(l, nil)

	rec := get(t, h, "/trades")
	require.Equal(t, http.StatusOK, rec.Code)

	var trades []journal.TradeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, "X", trades[0].Instrument)
	assert.Equal(t, market.Long, trades[0].Side)
	assert.Equal(t, ledger.TakeProfit, trades[0].Reason)

	rec = get(t, h, "/trades/"+trades[0].TradeID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/trades/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerShutsDownWithContext(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger, _ := logrustest.NewNullLogger()
	srv := NewServer(ln.Addr().String(), runLedger(t), logrus.NewEntry(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthcheck")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
