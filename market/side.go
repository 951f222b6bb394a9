package market

import "fmt"

// Side of an open position.
type Side int

const (
	Long Side = iota + 1
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// ParseSide is the inverse of Side.String. Used when reading journals back.
func ParseSide(s string) (Side, error) {
	switch s {
	case "LONG":
		return Long, nil
	case "SHORT":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// PnL returns the profit of closing a position of this side opened at
// entry and closed at exit, in price units.
func (s Side) PnL(entry, exit float64) float64 {
	if s == Short {
		return entry - exit
	}
	return exit - entry
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
