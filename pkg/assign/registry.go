// Package assign implements the role assignment stage: strategies that hand
// out role descriptions to the actors participating in a round.
package assign

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// Config carries variant options for role assigners.
type Config struct {
	// Roles maps actor names to fixed role descriptions (static variant).
	Roles map[string]string
}

// Factory constructs a role assigner from its configuration.
type Factory func(Config) (core.Assigner, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs a role assigner factory under the given variant name.
func Register(variant string, factory Factory) error {
	if variant == "" {
		return fmt.Errorf("assign: variant name is required")
	}
	if factory == nil {
		return fmt.Errorf("assign: factory is required for %s", variant)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[variant]; exists {
		return fmt.Errorf("assign: %s already registered", variant)
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

// New builds the named role assigner variant.
func New(variant string, cfg Config) (core.Assigner, error) {
	mu.RLock()
	factory, ok := registry[variant]
	mu.RUnlock()
	if !ok {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("unknown role assigner %q (known: %s)", variant, strings.Join(Variants(), ", ")), nil)
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
