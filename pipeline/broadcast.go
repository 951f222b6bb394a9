package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/tickledger/market"
)

// Broadcast copies every data message from source to each subscriber, in
// subscriber order. On EOD, or when source is closed, it sends EOD to every
// subscriber exactly once, closes the subscriber channels and returns
// without reading source again.
func Broadcast(log *logrus.Entry, source <-chan market.Message, subs []chan<- market.Message) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var forwarded int
	for {
		msg, ok := <-source
		if !ok {
			log.Debug("source closed, treating as end of day")
			msg = market.EndOfDay()
		}

		if msg.IsEOD() {
			for _, s := range subs {
				s <- market.EndOfDay()
				close(s)
			}
			log.WithFields(logrus.Fields{
				"messages":    forwarded,
				"subscribers": len(subs),
			}).Info("broadcast finished")
			return
		}

		for _, s := range subs {
			s <- msg
		}
		forwarded++
	}
}
