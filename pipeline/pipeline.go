// Package pipeline wires a tick source through a broadcaster and one
// worker per strategy into the ledger, and shuts the stages down in order.
package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tickledger/ledger"
	"github.com/rustyeddy/tickledger/market"
	"github.com/rustyeddy/tickledger/strategies"
)

const DefaultBuffer = 1024

// Source writes messages to out until the stream ends. It should send EOD
// last, though returning without one is treated the same way. Source must
// stop sending once ctx is done.
type Source func(ctx context.Context, out chan<- market.Message) error

type Pipeline struct {
	log        *logrus.Entry
	ledger     *ledger.Ledger
	registry   *strategies.Registry
	strategies []string
	buffer     int
}

type Option func(*Pipeline)

func WithLogger(log *logrus.Entry) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithRegistry replaces strategies.Default().
func WithRegistry(r *strategies.Registry) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithBuffer sets the capacity of the source and subscriber channels.
func WithBuffer(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// New builds a pipeline that runs one worker per strategy name.
func New(l *ledger.Ledger, names []string, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:        logrus.NewEntry(logrus.StandardLogger()),
		ledger:     l,
		registry:   strategies.Default(),
		strategies: names,
		buffer:     DefaultBuffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the whole pipeline and blocks until the ledger has stopped.
// The ledger receives EndOfDay only after every worker has returned, so
// every intent produced from the stream is applied first. The returned
// error is the source's, if any; closed trades are kept either way.
func (p *Pipeline) Run(ctx context.Context, source Source) error {
	var (
		subs    []chan<- market.Message
		workers []*Worker
	)
	for _, name := range p.strategies {
		s, err := p.registry.New(name)
		if err != nil {
			p.log.WithError(err).WithField("strategy", name).Error("strategy not started")
			continue
		}
		ch := make(chan market.Message, p.buffer)
		subs = append(subs, ch)
		workers = append(workers, NewWorker(p.log, name, s, ch, p.ledger.Inbox()))
	}

	p.log.WithFields(logrus.Fields{
		"workers": len(workers),
		"buffer":  p.buffer,
	}).Info("pipeline starting")

	g, gctx := errgroup.WithContext(ctx)
	srcCtx, stopSource := context.WithCancel(gctx)
	defer stopSource()

	msgs := make(chan market.Message, p.buffer)

	g.Go(func() error {
		p.ledger.Run()
		return nil
	})

	var running sync.WaitGroup
	for _, w := range workers {
		running.Add(1)
		go func(w *Worker) {
			defer running.Done()
			w.Run()
		}(w)
	}

	g.Go(func() error {
		Broadcast(p.log, msgs, subs)
		// Nothing reads msgs past EOD.
		stopSource()
		return nil
	})

	g.Go(func() error {
		defer close(msgs)
		return source(srcCtx, msgs)
	})

	g.Go(func() error {
		running.Wait()
		p.ledger.Inbox() <- ledger.EndOfDay{}
		<-p.ledger.Done()
		return nil
	})

	err := g.Wait()
	p.log.WithFields(logrus.Fields{
		"trades":       len(p.ledger.TradeLog()),
		"realized_pnl": p.ledger.RealizedPnL(),
	}).Info("pipeline finished")
	return err
}
