package strategies

import (
	"github.com/rustyeddy/tickledger/indicators"
	"github.com/rustyeddy/tickledger/market"
)

const BollingerName = "BollingerMeanReversion"

// BollingerMeanReversion fades closes that leave the Bollinger band and
// targets a return to the rolling mean.
//
//   - close above the upper band: SELL, stop one std-dev above the band
//   - close below the lower band: BUY, stop one std-dev below the band
type BollingerMeanReversion struct {
	numStdDev float64
	window    *indicators.Window
}

func NewBollingerMeanReversion(windowSize int, numStdDev float64) *BollingerMeanReversion {
	return &BollingerMeanReversion{
		numStdDev: numStdDev,
		window:    indicators.NewWindow(windowSize),
	}
}

func (s *BollingerMeanReversion) Name() string { return BollingerName }

func (s *BollingerMeanReversion) Process(t market.Tick) (Decision, bool) {
	price := t.Close
	s.window.Update(price)
	if !s.window.Ready() {
		return Decision{}, false
	}

	mean := s.window.Mean()
	std := s.window.StdDev()
	upper := mean + s.numStdDev*std
	lower := mean - s.numStdDev*std

	switch {
	case price > upper:
		return Decision{Signal: market.Sell, Target: mean, StopLoss: upper + std}, true
	case price < lower:
		return Decision{Signal: market.Buy, Target: mean, StopLoss: lower - std}, true
	default:
		return Decision{}, false
	}
}
