package ledger

import (
	"time"

	"github.com/rustyeddy/tickledger/market"
)

// Close reasons written to the trade log.
const (
	TakeProfit = "TakeProfit"
	StopLoss   = "StopLoss"
)

type Position struct {
	ID         string      `json:"id"`
	Instrument string      `json:"instrument"`
	Side       market.Side `json:"side"`
	Entry      float64     `json:"entry"`
	Target     float64     `json:"target"`
	Stop       float64     `json:"stop"`
	OpenTime   time.Time   `json:"open_time"`
	Strategy   string      `json:"strategy"`
}

func (p *Position) hitTarget(price float64) bool {
	if p.Side == market.Short {
		return price <= p.Target
	}
	return price >= p.Target
}

func (p *Position) hitStop(price float64) bool {
	if p.Side == market.Short {
		return price >= p.Stop
	}
	return price <= p.Stop
}

// exitReason reports whether price closes the position and why. The target
// is checked first, so a price that satisfies both closes as TakeProfit.
func (p *Position) exitReason(price float64) (string, bool) {
	switch {
	case p.hitTarget(price):
		return TakeProfit, true
	case p.hitStop(price):
		return StopLoss, true
	default:
		return "", false
	}
}
