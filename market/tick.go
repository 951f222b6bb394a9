package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedTick is returned by DecodeTick when a message cannot be
// turned into a Tick.
var ErrMalformedTick = errors.New("malformed tick")

// Tick is one market-data observation for an instrument.
type Tick struct {
	Identifier   string  `json:"identifier"`
	Close        float64 `json:"close_price"`
	Open         float64 `json:"open_price"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
	ChangeInOI   float64 `json:"change_in_oi"`
	OptionType   string  `json:"option_type"`
	Date         string  `json:"date"`
	Expiry       string  `json:"expiry"`
	RecDate      string  `json:"rec_date"`
}

// Feed exports are keyed by raw spreadsheet headers ("CLOSE PRICE ",
// "SYMBOL ", ...). Keys are trimmed and upper-cased before lookup.
var (
	identifierKeys   = []string{"SYMBOL", "IDENTIFIER", "INSTRUMENT"}
	closeKeys        = []string{"CLOSE PRICE", "CLOSE", "CLOSE_PRICE"}
	openKeys         = []string{"OPEN PRICE", "OPEN", "OPEN_PRICE"}
	volumeKeys       = []string{"VOLUME", "NO. OF CONTRACTS"}
	openInterestKeys = []string{"OPEN INTEREST", "OPEN INT", "OPEN_INTEREST"}
	changeInOIKeys   = []string{"CHANGE IN OI", "CHANGE_IN_OI"}
	optionTypeKeys   = []string{"OPTION TYPE", "OPTION_TYPE"}
	dateKeys         = []string{"DATE"}
	expiryKeys       = []string{"EXPIRY"}
	recDateKeys      = []string{"REC DATE", "REC_DATE"}
)

// DecodeTick decodes one JSON-encoded tick. The identifier and close
// price are required; every other field defaults to its zero value.
func DecodeTick(data []byte) (Tick, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tick{}, fmt.Errorf("%w: %v", ErrMalformedTick, err)
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[strings.ToUpper(strings.TrimSpace(k))] = v
	}

	var t Tick
	var ok bool
	if t.Identifier, ok = lookupString(fields, identifierKeys); !ok || t.Identifier == "" {
		return Tick{}, fmt.Errorf("%w: missing identifier", ErrMalformedTick)
	}

	v, found := lookup(fields, closeKeys)
	if !found {
		return Tick{}, fmt.Errorf("%w: missing close price for %s", ErrMalformedTick, t.Identifier)
	}
	px, err := toFloat(v)
	if err != nil {
		return Tick{}, fmt.Errorf("%w: close price for %s: %v", ErrMalformedTick, t.Identifier, err)
	}
	t.Close = px

	// Optional numeric columns. A value that is present but unparseable is
	// still an error: it means the row is corrupt, not merely sparse.
	for _, f := range []struct {
		keys []string
		dst  *float64
	}{
		{openKeys, &t.Open},
		{volumeKeys, &t.Volume},
		{openInterestKeys, &t.OpenInterest},
		{changeInOIKeys, &t.ChangeInOI},
	} {
		v, found := lookup(fields, f.keys)
		if !found {
			continue
		}
		n, err := toFloat(v)
		if err != nil {
			return Tick{}, fmt.Errorf("%w: %s %s: %v", ErrMalformedTick, t.Identifier, f.keys[0], err)
		}
		*f.dst = n
	}

	t.OptionType, _ = lookupString(fields, optionTypeKeys)
	t.Date, _ = lookupString(fields, dateKeys)
	t.Expiry, _ = lookupString(fields, expiryKeys)
	t.RecDate, _ = lookupString(fields, recDateKeys)

	return t, nil
}

func lookup(fields map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(fields map[string]any, keys []string) (string, bool) {
	v, ok := lookup(fields, keys)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "-" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("non-finite value %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
