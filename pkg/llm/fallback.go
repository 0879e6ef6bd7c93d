package llm

import (
	"context"

	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/resilience"
)

// FallbackProvider tries a primary Provider and, when it fails, retries the
// same request against a secondary one.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallback decorates primary with a secondary provider used on failure.
func NewFallback(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary}
}

// Chat implements Provider.
func (p *FallbackProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	value, err := resilience.WithFallback(ctx,
		func() (interface{}, error) {
			return p.primary.Chat(ctx, req)
		},
		resilience.FallbackFunc(func(ctx context.Context, primaryErr error) (interface{}, error) {
			return p.secondary.Chat(ctx, req)
		}),
	)
	if err != nil {
		return nil, err
	}
	resp, ok := value.(*ChatResponse)
	if !ok {
		return nil, rterrors.New(rterrors.CodeInternal, "unexpected fallback result type", nil)
	}
	return resp, nil
}
