package execution

import (
	"context"

	"github.com/jllopis/roundtable/pkg/core"
)

func init() {
	MustRegister("none", func(cfg Config) (core.Executor, error) {
		return &None{}, nil
	})
}

// None passes the plan through unchanged. Used when the plan itself is the
// deliverable and evaluation judges it directly.
type None struct{}

// Execute implements core.Executor.
func (n *None) Execute(ctx context.Context, plan string) (any, error) {
	return plan, nil
}
