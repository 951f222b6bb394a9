package strategies

import "github.com/rustyeddy/tickledger/market"

const OpenOnceName = "OpenOnce"

// OpenOnce signals a single time, on the first tick it sees for Instrument
// (or for any instrument when Instrument is empty). Target and stop are
// placed at fixed percentages from the tick's close. It's meant as a
// wiring test.
type OpenOnce struct {
	Instrument string
	Signal     market.Signal
	TargetPct  float64
	StopPct    float64

	opened bool
}

func (s *OpenOnce) Name() string { return OpenOnceName }

func (s *OpenOnce) Process(t market.Tick) (Decision, bool) {
	if s.opened {
		return Decision{}, false
	}
	if s.Instrument != "" && t.Identifier != s.Instrument {
		return Decision{}, false
	}
	s.opened = true

	if s.Signal == market.Sell {
		return Decision{
			Signal:   market.Sell,
			Target:   t.Close * (1 - s.TargetPct),
			StopLoss: t.Close * (1 + s.StopPct),
		}, true
	}
	return Decision{
		Signal:   market.Buy,
		Target:   t.Close * (1 + s.TargetPct),
		StopLoss: t.Close * (1 - s.StopPct),
	}, true
}
