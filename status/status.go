// Package status serves a read-only view of a running ledger over HTTP.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/tickledger/journal"
	"github.com/rustyeddy/tickledger/ledger"
)

// Source is what the dashboard reads. *ledger.Ledger satisfies it.
type Source interface {
	Snapshot() ledger.Snapshot
	TradeLog() []journal.TradeRecord
}

// Summary is the /snapshot body.
type Summary struct {
	ledger.Snapshot
	Stats Stats `json:"stats"`
}

// Stats mirrors journal.Summary. ProfitFactor is omitted while it is
// infinite (wins and no losses), which JSON cannot encode.
type Stats struct {
	Trades       int      `json:"trades"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	GrossProfit  float64  `json:"gross_profit"`
	GrossLoss    float64  `json:"gross_loss"`
	RealizedPL   float64  `json:"realized_pl"`
	ProfitFactor *float64 `json:"profit_factor,omitempty"`
}

func statsOf(trades []journal.TradeRecord) Stats {
	s := journal.Summarize(trades)
	out := Stats{
		Trades:      s.Trades,
		Wins:        s.Wins,
		Losses:      s.Losses,
		GrossProfit: s.GrossProfit,
		GrossLoss:   s.GrossLoss,
		RealizedPL:  s.RealizedPL,
	}
	if !math.IsInf(s.ProfitFactor, 0) {
		pf := s.ProfitFactor
		out.ProfitFactor = &pf
	}
	return out
}

// Router builds the dashboard routes.
func Router(src Source, log *logrus.Entry) http.Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			log.WithError(err).Error("/healthcheck write")
		}
	})

	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap := src.Snapshot()
		writeJSON(w, log, Summary{Snapshot: snap, Stats: statsOf(snap.TradeLog)})
	})

	r.Get("/trades", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, src.TradeLog())
	})

	r.Get("/trades/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		for _, t := range src.TradeLog() {
			if t.TradeID == id {
				writeJSON(w, log, t)
				return
			}
		}
		http.Error(w, "trade not found", http.StatusNotFound)
	})

	return r
}

// writeJSON encodes v before writing the header, so a value that cannot be
// encoded becomes a 500 rather than an empty 200.
func writeJSON(w http.ResponseWriter, log *logrus.Entry, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.WithError(err).Error("encode response")
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("write response")
	}
}

// Server runs the dashboard until its context ends.
type Server struct {
	Addr string
	Log  *logrus.Entry
	src  Source
}

func NewServer(addr string, src Source, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{Addr: addr, Log: log, src: src}
}

// Run listens on Addr and shuts down gracefully when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           Router(s.src, s.Log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Log.Infof("status listening on %s", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Log.Info("status shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Log.WithError(err).Error("status shutdown")
		return err
	}
	return nil
}
