package ledger

import "github.com/rustyeddy/tickledger/market"

// Intent is a request to mutate ledger state. Only the types in this file
// implement it.
type Intent interface {
	intent()
}

// UpdatePrice records the latest close for an instrument and closes any
// position whose target or stop it crosses.
type UpdatePrice struct {
	Instrument string
	Price      float64
}

// OpenPosition appends a new position. Buy opens LONG, anything else SHORT.
type OpenPosition struct {
	Instrument string
	Signal     market.Signal
	Price      float64
	Target     float64
	StopLoss   float64
	Strategy   string
}

// EndOfDay stops the ledger. It must be the last intent sent.
type EndOfDay struct{}

func (UpdatePrice) intent()  {}
func (OpenPosition) intent() {}
func (EndOfDay) intent()     {}
