package llm

import (
	"context"
	stderrors "errors"

	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/resilience"
)

// RetryingProvider wraps a Provider with retry semantics for transient
// backend failures. Errors that already carry a non-recoverable flag are
// not retried.
type RetryingProvider struct {
	inner Provider
	retry resilience.RetryConfig
}

// NewRetrying decorates inner with the given retry policy.
func NewRetrying(inner Provider, retry resilience.RetryConfig) *RetryingProvider {
	return &RetryingProvider{inner: inner, retry: retry}
}

// Chat implements Provider.
func (p *RetryingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	err := p.retry.Do(ctx, func() error {
		r, chatErr := p.inner.Chat(ctx, req)
		if chatErr != nil {
			// Typed errors keep their own recoverable flag.
			var re *rterrors.RoundtableError
			if stderrors.As(chatErr, &re) {
				return chatErr
			}
			return rterrors.New(rterrors.CodeProvider, "chat request failed", chatErr).
				WithRecoverable(true)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
