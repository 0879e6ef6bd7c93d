// Package execution implements the execution stage: strategies that carry
// out a plan and produce an opaque result for evaluation.
package execution

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// Config carries variant options for executors.
type Config struct {
	// Actor carries out plans (actor and tool variants).
	Actor core.Actor
	// Tools is the toolbox available to the tool variant.
	Tools []core.Tool
	// Prompt overrides the default execution instruction.
	Prompt string
}

// Factory constructs an executor from its configuration.
type Factory func(Config) (core.Executor, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs an executor factory under the given variant name.
func Register(variant string, factory Factory) error {
	if variant == "" {
		return fmt.Errorf("execution: variant name is required")
	}
	if factory == nil {
		return fmt.Errorf("execution: factory is required for %s", variant)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[variant]; exists {
		return fmt.Errorf("execution: %s already registered", variant)
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

// New builds the named executor variant.
func New(variant string, cfg Config) (core.Executor, error) {
	mu.RLock()
	factory, ok := registry[variant]
	mu.RUnlock()
	if !ok {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("unknown executor %q (known: %s)", variant, strings.Join(Variants(), ", ")), nil)
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
