// SPDX-License-Identifier: Apache-2.0
package resilience

import "context"

// FallbackStrategy defines a fallback behavior when a primary operation fails.
type FallbackStrategy interface {
	// Execute runs the fallback operation.
	Execute(ctx context.Context, primaryErr error) (interface{}, error)
}

// FallbackFunc wraps a function as a FallbackStrategy.
type FallbackFunc func(ctx context.Context, primaryErr error) (interface{}, error)

// Execute implements FallbackStrategy.
func (f FallbackFunc) Execute(ctx context.Context, err error) (interface{}, error) {
	return f(ctx, err)
}

// WithFallback executes fn, and on error, uses the fallback strategy.
// A nil strategy propagates the primary error unchanged.
func WithFallback(ctx context.Context, fn func() (interface{}, error), fallback FallbackStrategy) (interface{}, error) {
	value, err := fn()
	if err == nil {
		return value, nil
	}
	if fallback == nil {
		return nil, err
	}

	return fallback.Execute(ctx, err)
}
