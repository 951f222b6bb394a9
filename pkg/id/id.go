// Package id mints position identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces ULIDs that sort by the time they were minted. IDs
// minted within the same millisecond still increase monotonically.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator returns a Generator stamping IDs with now. A nil now uses
// the wall clock.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}

	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     now,
	}
}

// Next returns a fresh identifier.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		// Only possible if the clock jumps back past the Unix epoch or the
		// monotonic entropy overflows within one millisecond.
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(nil)

// New returns an identifier from the package-level generator.
func New() string {
	return std.Next()
}
