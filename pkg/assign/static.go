package assign

import (
	"context"

	"github.com/jllopis/roundtable/pkg/core"
)

func init() {
	MustRegister("static", func(cfg Config) (core.Assigner, error) {
		return &Static{roles: cfg.Roles}, nil
	})
}

// Static hands out preconfigured role descriptions, keyed by actor name.
// Candidates without an entry keep whatever description they already have.
// The assigner actor is not consulted.
type Static struct {
	roles map[string]string
}

// Assign implements core.Assigner.
func (s *Static) Assign(ctx context.Context, assigner core.Actor, candidates []core.Actor, advice, task string) ([]core.Actor, error) {
	for _, candidate := range candidates {
		if desc, ok := s.roles[candidate.Name()]; ok {
			candidate.SetRoleDescription(desc)
		}
	}
	return candidates, nil
}
