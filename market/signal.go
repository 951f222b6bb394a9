package market

type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Side maps a signal to the side of the position it opens: BUY opens a
// long, anything else a short.
func (s Signal) Side() Side {
	if s == Buy {
		return Long
	}
	return Short
}
