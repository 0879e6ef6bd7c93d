// Package decision implements the decision-making stage: strategies that turn
// a task, the previous plan, and advice into an ordered list of plan
// candidates. The manager-guided protocol is a capability a variant declares
// by implementing core.ManagerGuidedPlanner.
package decision

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// Config carries variant options for decision makers.
type Config struct {
	// ParallelCritics solicits critiques concurrently. Results are joined
	// in roster order, so the outcome is deterministic either way.
	ParallelCritics bool
}

// Factory constructs a decision maker from its configuration.
type Factory func(Config) (core.DecisionMaker, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs a decision maker factory under the given variant name.
func Register(variant string, factory Factory) error {
	if variant == "" {
		return fmt.Errorf("decision: variant name is required")
	}
	if factory == nil {
		return fmt.Errorf("decision: factory is required for %s", variant)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[variant]; exists {
		return fmt.Errorf("decision: %s already registered", variant)
	}
	registry[variant] = factory
	return nil
}

// MustRegister panics if registration fails.
func MustRegister(variant string, factory Factory) {
	if err := Register(variant, factory); err != nil {
		panic(err)
	}
}

// New builds the named decision maker variant.
func New(variant string, cfg Config) (core.DecisionMaker, error) {
	mu.RLock()
	factory, ok := registry[variant]
	mu.RUnlock()
	if !ok {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("unknown decision maker %q (known: %s)", variant, strings.Join(Variants(), ", ")), nil)
	}
	return factory(cfg)
}

// Variants returns the sorted list of registered variant names.
func Variants() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
