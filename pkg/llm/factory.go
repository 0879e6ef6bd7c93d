package llm

import (
	"fmt"
	"strings"
	"time"

	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/resilience"
)

// Config selects a provider implementation and its resilience wrapping.
type Config struct {
	// Provider names the backend: "ollama" (default) or "mock".
	Provider string
	// BaseURL is the backend endpoint; empty uses the provider default.
	BaseURL string
	// MaxRetries, when positive, wraps the provider with retry semantics.
	MaxRetries int
	// InitialDelay is the first retry backoff; zero keeps the default.
	InitialDelay time.Duration
	// FallbackProvider, when set, names a secondary backend tried after
	// the primary fails.
	FallbackProvider string
	// FallbackBaseURL is the secondary backend endpoint.
	FallbackBaseURL string
}

// NewFromConfig builds a Provider according to cfg, applying retry and
// fallback decorators when configured.
func NewFromConfig(cfg Config) (Provider, error) {
	provider, err := build(cfg.Provider, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries > 0 {
		retry := resilience.DefaultRetryConfig().WithMaxAttempts(cfg.MaxRetries)
		if cfg.InitialDelay > 0 {
			retry = retry.WithInitialDelay(cfg.InitialDelay)
		}
		provider = NewRetrying(provider, retry)
	}

	if strings.TrimSpace(cfg.FallbackProvider) != "" {
		secondary, err := build(cfg.FallbackProvider, cfg.FallbackBaseURL)
		if err != nil {
			return nil, err
		}
		provider = NewFallback(provider, secondary)
	}

	return provider, nil
}

func build(name, baseURL string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ollama":
		return NewOllama(baseURL), nil
	case "mock":
		return &MockProvider{Response: "mock response"}, nil
	default:
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("unknown llm provider %q", name), nil)
	}
}
