package market

// Kind distinguishes ordinary stream payloads from the end-of-day marker.
type Kind int

const (
	Data Kind = iota
	EOD
)

func (k Kind) String() string {
	if k == EOD {
		return "EOD"
	}
	return "DATA"
}

// Message is one element of the tick stream. An EOD message carries no
// payload and is never confused with data, whatever the payload bytes are.
type Message struct {
	Kind    Kind
	Payload []byte
}

// NewData wraps a raw line received from the feed.
func NewData(payload []byte) Message {
	return Message{Kind: Data, Payload: payload}
}

// EndOfDay returns the terminal marker.
func EndOfDay() Message {
	return Message{Kind: EOD}
}

func (m Message) IsEOD() bool { return m.Kind == EOD }
