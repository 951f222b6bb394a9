package strategies

import (
	"github.com/rustyeddy/tickledger/indicators"
	"github.com/rustyeddy/tickledger/market"
)

const VolumeFadeName = "VolumeFade"

// VolumeFade shorts call options that gap up into a large green candle on
// unusually thin volume without open-interest build-up, targeting the
// previous close.
type VolumeFade struct {
	minGapPct float64
	volumes   *indicators.Window

	havePrev  bool
	prevOpen  float64
	prevClose float64
}

func NewVolumeFade(volumeWindow int, minGapPct float64) *VolumeFade {
	return &VolumeFade{
		minGapPct: minGapPct,
		volumes:   indicators.NewWindow(volumeWindow),
	}
}

func (s *VolumeFade) Name() string { return VolumeFadeName }

func (s *VolumeFade) Process(t market.Tick) (Decision, bool) {
	s.volumes.Update(t.Volume)

	// Previous candle is always advanced, whatever this tick decides.
	defer func() {
		s.prevOpen, s.prevClose, s.havePrev = t.Open, t.Close, true
	}()

	if !s.volumes.Ready() || !s.havePrev {
		return Decision{}, false
	}

	volZ := 0.0
	if std := s.volumes.StdDev(); std > 0 {
		volZ = (t.Volume - s.volumes.Mean()) / std
	}

	gapUp := t.Open > s.prevClose+s.prevClose*s.minGapPct

	setup := t.Close > t.Open &&
		t.Open > 0 &&
		(t.Close-t.Open)/t.Open > 0.1 &&
		volZ < -1.5 &&
		t.ChangeInOI <= 0 &&
		t.OptionType == "CE" &&
		s.prevClose > s.prevOpen &&
		gapUp
	if !setup {
		return Decision{}, false
	}

	target := s.prevClose
	stop := t.Close + (t.Close - t.Open)
	reward := t.Close - target
	risk := stop - t.Close
	if risk <= 0 || reward/risk <= 1.5 {
		return Decision{}, false
	}

	return Decision{Signal: market.Sell, Target: target, StopLoss: stop}, true
}
