package strategies

import "github.com/rustyeddy/tickledger/market"

const NoopName = "Noop"

// NoopStrategy never signals. Its worker still drives price updates.
type NoopStrategy struct{}

func (NoopStrategy) Name() string { return NoopName }

func (NoopStrategy) Process(market.Tick) (Decision, bool) {
	return Decision{}, false
}
