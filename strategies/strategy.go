package strategies

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/tickledger/market"
)

// ErrUnknownStrategy is returned when a name has no registered factory.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy turns ticks into trade decisions. Implementations keep their
// own rolling state and must never reach into ledger or pipeline state.
// A Strategy is owned by a single worker and is not safe for concurrent use.
type Strategy interface {
	Name() string

	// Process consumes the next tick. It returns false when no position
	// should be opened.
	Process(t market.Tick) (Decision, bool)
}

// Decision is a signal to open a position with its exit levels.
type Decision struct {
	Signal   market.Signal
	Target   float64
	StopLoss float64
}

func (d Decision) String() string {
	return fmt.Sprintf("%s target=%.2f stop=%.2f", d.Signal, d.Target, d.StopLoss)
}

// Factory builds a fresh strategy instance.
type Factory func() Strategy

// Registry maps strategy names to factories. Every worker gets its own
// instance so rolling windows are never shared.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New returns a new instance of the named strategy.
func (r *Registry) New(name string) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownStrategy, name, r.Names())
	}
	return f(), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate reports the first name that is not registered.
func (r *Registry) Validate(names []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		if _, ok := r.factories[n]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownStrategy, n)
		}
	}
	return nil
}

var registry = Builtin()

// Builtin returns a registry holding every strategy shipped with the module.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(BollingerName, func() Strategy { return NewBollingerMeanReversion(20, 2) })
	r.Register(VolumeFadeName, func() Strategy { return NewVolumeFade(10, 0.05) })
	r.Register(OpenOnceName, func() Strategy { return &OpenOnce{Signal: market.Buy, TargetPct: 0.10, StopPct: 0.05} })
	r.Register(NoopName, func() Strategy { return NoopStrategy{} })
	return r
}

// Register adds a factory to the default registry.
func Register(name string, f Factory) {
	registry.Register(name, f)
}

// Default returns the process-wide registry.
func Default() *Registry {
	return registry
}
