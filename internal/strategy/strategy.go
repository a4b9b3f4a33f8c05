// Package strategy defines the Strategy contract the simulator drives and a
// Registry of named strategy factories.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mchia/Backtest-Tool/internal/domain"
)

// Strategy is a pure evaluator over a bar history. Implementations must
// derive their signal only from the prefix they are given — never from
// future bars — so that a simulation is deterministic and free of
// look-ahead bias.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// MinBars returns the minimum history length the strategy needs before
	// it can produce a signal.
	MinBars() int

	// Evaluate returns the signal for the newest bar in history. It returns
	// ErrInsufficientHistory when len(history) < MinBars; the simulator
	// treats that as Hold.
	Evaluate(history []domain.Bar) (domain.SignalType, error)
}

// ErrInsufficientHistory is returned by Evaluate when the supplied prefix is
// shorter than the strategy's minimum window. It is a degradation, not a
// failure: early bars simply produce no signal.
var ErrInsufficientHistory = errors.New("insufficient history")

// InvalidConfigError reports a strategy parameter that fails its declared
// constraint. It is raised at construction time, before any simulation runs.
type InvalidConfigError struct {
	Strategy string
	Reason   string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Strategy, e.Reason)
}

// Params carries named strategy parameters, e.g. {"period": 14}. Missing
// keys fall back to the strategy's defaults.
type Params map[string]float64

// Get returns the named parameter or def when absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Factory builds a configured Strategy instance, validating parameters.
type Factory func(p Params) (Strategy, error)

// Registry holds a named collection of strategy factories for lookup and
// enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a strategy factory to the registry under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build constructs the named strategy with the given parameters.
func (r *Registry) Build(name string, p Params) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return f(p)
}

// Has reports whether a strategy is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
