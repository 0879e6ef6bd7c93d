package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
)

func init() {
	MustRegister("managed", func(cfg Config) (core.DecisionMaker, error) {
		return &Managed{vertical: Vertical{parallel: cfg.ParallelCritics}}, nil
	})
}

// Managed extends the vertical protocol with a manager who reviews the draft
// and the critiques and issues a directive the solver must follow. It
// declares the manager-guided capability; without a manager it behaves like
// the vertical protocol.
type Managed struct {
	vertical Vertical
}

// Plan implements core.DecisionMaker by falling back to vertical behavior.
func (m *Managed) Plan(ctx context.Context, agents []core.Actor, task, previousPlan, advice string) ([]core.Candidate, error) {
	return m.vertical.Plan(ctx, agents, task, previousPlan, advice)
}

// PlanWithManager implements core.ManagerGuidedPlanner.
func (m *Managed) PlanWithManager(ctx context.Context, agents []core.Actor, manager core.Actor, task, previousPlan, advice string) ([]core.Candidate, error) {
	if len(agents) == 0 {
		return nil, nil
	}
	solver, critics := agents[0], agents[1:]

	draft, err := solver.Ask(ctx, draftPrompt(task, previousPlan, advice))
	if err != nil {
		return nil, err
	}

	critiques, err := gatherCritiques(ctx, critics, task, draft, m.vertical.parallel)
	if err != nil {
		return nil, err
	}

	directive, err := manager.Ask(ctx, directivePrompt(task, draft, critics, critiques))
	if err != nil {
		return nil, err
	}

	revised, err := solver.Ask(ctx, revisePrompt(task, draft, critics, critiques, directive))
	if err != nil {
		return nil, err
	}

	return []core.Candidate{
		{Proposer: solver.Name(), Content: revised},
		{Proposer: solver.Name(), Content: draft},
	}, nil
}

func directivePrompt(task, draft string, critics []core.Actor, critiques []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Proposed solution:\n%s\n\n", draft)
	for i, critique := range critiques {
		fmt.Fprintf(&b, "Critique from %s:\n%s\n\n", critics[i].Name(), critique)
	}
	b.WriteString("You are the manager. Issue a concise directive telling the solver how to produce the final solution.")
	return b.String()
}
