package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/tickledger/ledger"
	"github.com/rustyeddy/tickledger/market"
	"github.com/rustyeddy/tickledger/strategies"
)

// Worker feeds one subscriber stream through one strategy and turns the
// results into ledger intents.
type Worker struct {
	name     string
	strategy strategies.Strategy
	in       <-chan market.Message
	ledger   chan<- ledger.Intent
	log      *logrus.Entry

	decoded int
	skipped int
	signals int
}

// NewWorker binds s to one subscriber channel. name is the registry name
// the strategy was configured under and is recorded on every position.
func NewWorker(log *logrus.Entry, name string, s strategies.Strategy, in <-chan market.Message, out chan<- ledger.Intent) *Worker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		name:     name,
		strategy: s,
		in:       in,
		ledger:   out,
		log:      log.WithField("strategy", name),
	}
}

// Run consumes messages until EOD or until the input channel is closed.
// For every tick it sends the price update before any open intent.
func (w *Worker) Run() {
	defer func() {
		w.log.WithFields(logrus.Fields{
			"ticks":   w.decoded,
			"skipped": w.skipped,
			"signals": w.signals,
		}).Info("worker stopped")
	}()

	for msg := range w.in {
		if msg.IsEOD() {
			return
		}
		w.handle(msg.Payload)
	}
}

func (w *Worker) handle(payload []byte) {
	tick, err := market.DecodeTick(payload)
	if err != nil {
		w.skipped++
		w.log.WithError(err).Warn("skipping tick")
		return
	}
	w.decoded++

	w.ledger <- ledger.UpdatePrice{Instrument: tick.Identifier, Price: tick.Close}

	d, ok := w.strategy.Process(tick)
	if !ok {
		return
	}
	w.signals++
	w.log.WithFields(logrus.Fields{
		"instrument": tick.Identifier,
		"price":      tick.Close,
	}).Debug("decision " + d.String())

	w.ledger <- ledger.OpenPosition{
		Instrument: tick.Identifier,
		Signal:     d.Signal,
		Price:      tick.Close,
		Target:     d.Target,
		StopLoss:   d.StopLoss,
		Strategy:   w.name,
	}
}
