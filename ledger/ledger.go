// Package ledger owns open positions, the latest price per instrument,
// the trade log and realized PnL. A single goroutine (Run) applies every
// mutation; other goroutines talk to it by sending Intents.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/tickledger/journal"
	"github.com/rustyeddy/tickledger/pkg/id"
)

// ErrInvariant marks a broken ledger invariant. It is only ever raised via
// panic.
var ErrInvariant = errors.New("ledger invariant violated")

const defaultBuffer = 1024

type Ledger struct {
	log     *logrus.Entry
	inbox   chan Intent
	journal journal.Journal
	now     func() time.Time
	ids     *id.Generator

	// applied, when set, sees every intent in the order Run consumes it.
	applied func(Intent)

	mu        sync.RWMutex
	positions map[string][]*Position
	prices    map[string]float64
	trades    []journal.TradeRecord
	realized  float64
	open      int
	closed    map[string]struct{}

	done chan struct{}
}

type Option func(*Ledger)

// WithLogger sets the entry used for open and close events.
func WithLogger(log *logrus.Entry) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithJournal writes every close to j. Journal failures are logged and
// never change ledger state.
func WithJournal(j journal.Journal) Option {
	return func(l *Ledger) {
		if j != nil {
			l.journal = j
		}
	}
}

// WithClock replaces time.Now for open and close timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithBuffer sets the inbox capacity.
func WithBuffer(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.inbox = make(chan Intent, n)
		}
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		log:       logrus.NewEntry(logrus.StandardLogger()),
		journal:   journal.Discard{},
		now:       time.Now,
		positions: make(map[string][]*Position),
		prices:    make(map[string]float64),
		closed:    make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.inbox == nil {
		l.inbox = make(chan Intent, defaultBuffer)
	}
	l.ids = id.NewGenerator(l.now)
	return l
}

// Inbox is the only way to change ledger state. Intents from one sender
// are applied in the order they were sent.
func (l *Ledger) Inbox() chan<- Intent { return l.inbox }

// Done is closed once Run has returned.
func (l *Ledger) Done() <-chan struct{} { return l.done }

// Run consumes intents until EndOfDay or until the inbox is closed. After
// it returns the ledger is read-only.
func (l *Ledger) Run() {
	defer close(l.done)

	for in := range l.inbox {
		if l.applied != nil {
			l.applied(in)
		}
		if l.apply(in) {
			break
		}
	}

	l.mu.RLock()
	l.log.WithFields(logrus.Fields{
		"trades":       len(l.trades),
		"open":         l.open,
		"realized_pnl": l.realized,
	}).Info("ledger stopped")
	l.mu.RUnlock()
}

// apply handles one intent and reports whether the ledger should stop.
func (l *Ledger) apply(in Intent) bool {
	switch v := in.(type) {
	case EndOfDay:
		return true
	case UpdatePrice:
		l.mu.Lock()
		closes := l.updatePrice(v.Instrument, v.Price)
		snap := l.pnlLocked()
		l.mu.Unlock()

		for _, rec := range closes {
			l.logClose(rec)
			l.record(rec, snap)
		}
	case OpenPosition:
		l.mu.Lock()
		p := l.openPosition(v)
		l.mu.Unlock()

		l.log.WithFields(logrus.Fields{
			"id":         p.ID,
			"instrument": p.Instrument,
			"side":       p.Side.String(),
			"entry":      p.Entry,
			"target":     p.Target,
			"stop":       p.Stop,
			"strategy":   p.Strategy,
		}).Info("[OPEN]")
	default:
		panic(fmt.Errorf("%w: unknown intent %T", ErrInvariant, in))
	}
	return false
}

func (l *Ledger) openPosition(v OpenPosition) *Position {
	p := &Position{
		ID:         l.ids.Next(),
		Instrument: v.Instrument,
		Side:       v.Signal.Side(),
		Entry:      v.Price,
		Target:     v.Target,
		Stop:       v.StopLoss,
		OpenTime:   l.now(),
		Strategy:   v.Strategy,
	}
	l.positions[v.Instrument] = append(l.positions[v.Instrument], p)
	l.open++
	return p
}

// updatePrice sets the price and runs the auto-close scan for instrument.
// The caller holds the write lock.
func (l *Ledger) updatePrice(instrument string, price float64) []journal.TradeRecord {
	l.prices[instrument] = price

	open := l.positions[instrument]
	if len(open) == 0 {
		return nil
	}

	var (
		kept   = make([]*Position, 0, len(open))
		closes []journal.TradeRecord
	)
	for _, p := range open {
		reason, ok := p.exitReason(price)
		if !ok {
			kept = append(kept, p)
			continue
		}
		closes = append(closes, l.closePosition(p, price, reason))
	}

	if len(kept) == 0 {
		delete(l.positions, instrument)
	} else {
		l.positions[instrument] = kept
	}
	l.open -= len(closes)
	return closes
}

// closePosition books the exit of p. The caller removes p from the open
// collection before releasing the write lock.
func (l *Ledger) closePosition(p *Position, price float64, reason string) journal.TradeRecord {
	if _, dup := l.closed[p.ID]; dup {
		panic(fmt.Errorf("%w: position %s closed twice", ErrInvariant, p.ID))
	}
	l.closed[p.ID] = struct{}{}

	closeTime := l.now()
	if closeTime.Before(p.OpenTime) {
		closeTime = p.OpenTime
	}

	rec := journal.TradeRecord{
		TradeID:    p.ID,
		Instrument: p.Instrument,
		Side:       p.Side,
		Strategy:   p.Strategy,
		EntryPrice: p.Entry,
		ExitPrice:  price,
		OpenTime:   p.OpenTime,
		CloseTime:  closeTime,
		RealizedPL: p.Side.PnL(p.Entry, price),
		Reason:     reason,
	}
	l.realized += rec.RealizedPL
	l.trades = append(l.trades, rec)
	return rec
}

func (l *Ledger) pnlLocked() journal.PnLSnapshot {
	return journal.PnLSnapshot{
		Time:          l.now(),
		RealizedPL:    l.realized,
		OpenPositions: l.open,
		Trades:        len(l.trades),
	}
}

func (l *Ledger) logClose(rec journal.TradeRecord) {
	l.log.WithFields(logrus.Fields{
		"id":         rec.TradeID,
		"instrument": rec.Instrument,
		"side":       rec.Side.String(),
		"entry":      rec.EntryPrice,
		"exit":       rec.ExitPrice,
		"pnl":        rec.RealizedPL,
		"reason":     rec.Reason,
	}).Info("[CLOSE]")
}

func (l *Ledger) record(rec journal.TradeRecord, snap journal.PnLSnapshot) {
	if err := l.journal.RecordTrade(rec); err != nil {
		l.log.WithError(err).WithField("id", rec.TradeID).Error("journal trade")
	}
	if err := l.journal.RecordPnL(snap); err != nil {
		l.log.WithError(err).Error("journal pnl")
	}
}

// TradeLog returns the closed trades in close order.
func (l *Ledger) TradeLog() []journal.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]journal.TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) RealizedPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realized
}

// Snapshot is a consistent copy of ledger state.
type Snapshot struct {
	Prices      map[string]float64 `json:"prices"`
	Open        []Position         `json:"open"`
	Trades      int                `json:"trades"`
	RealizedPnL float64            `json:"realized_pnl"`

	// TradeLog is the closed trades at the same instant; len(TradeLog) == Trades.
	TradeLog []journal.TradeRecord `json:"-"`
}

// Snapshot is safe to call while Run is active. Open positions are grouped
// by instrument name and keep their insertion order within an instrument.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Prices:      make(map[string]float64, len(l.prices)),
		Open:        make([]Position, 0, l.open),
		Trades:      len(l.trades),
		RealizedPnL: l.realized,
		TradeLog:    make([]journal.TradeRecord, len(l.trades)),
	}
	copy(s.TradeLog, l.trades)
	for k, v := range l.prices {
		s.Prices[k] = v
	}

	instruments := make([]string, 0, len(l.positions))
	for k := range l.positions {
		instruments = append(instruments, k)
	}
	sort.Strings(instruments)
	for _, k := range instruments {
		for _, p := range l.positions[k] {
			s.Open = append(s.Open, *p)
		}
	}
	return s
}
