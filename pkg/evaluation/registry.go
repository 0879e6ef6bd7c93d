// Package evaluation implements the evaluation stage: strategies that ask
// the evaluator actor to judge an execution result and produce a score plus
// advice for the next round. Malformed evaluator replies are never errors;
// they surface as unrecognized scores, which the controller treats as reject.
package evaluation

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// Config carries variant options for evaluators.
type Config struct {
	// Prompt overrides the default scoring instruction. Overrides must keep
	// asking for the variant's JSON reply shape.
	Prompt string
}

// Factory constructs an evaluator from its configuration.
type Factory func(Config) (core.Evaluator, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register installs an evaluator factory under the given variant name.
func Register(variant string, factory Factory) error {
	if variant == "" {
		return fmt.Errorf("evaluation: variant name is required")
	}
	if factory == nil {
		return fmt.Errorf("evaluation: factory is required for %s", variant)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[variant]; exists {
		return fmt.Errorf("evaluation: %s already registered", variant)
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

// New builds the named evaluator variant.
func New(variant string, cfg Config) (core.Evaluator, error) {
	mu.RLock()
	factory, ok := registry[variant]
	mu.RUnlock()
	if !ok {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("unknown evaluator %q (known: %s)", variant, strings.Join(Variants(), ", ")), nil)
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

// extractJSON returns the first top-level JSON object embedded in s, or empty.
// Models habitually wrap JSON in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
