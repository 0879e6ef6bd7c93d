package decision

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jllopis/roundtable/pkg/core"
)

func init() {
	MustRegister("vertical", func(cfg Config) (core.DecisionMaker, error) {
		return &Vertical{parallel: cfg.ParallelCritics}, nil
	})
}

// Vertical is the draft-critique-revise protocol: the solver drafts a
// solution, every critic reviews it, and the solver revises. The revised
// solution is the first candidate, the draft the second.
type Vertical struct {
	parallel bool
}

// Plan implements core.DecisionMaker.
func (v *Vertical) Plan(ctx context.Context, agents []core.Actor, task, previousPlan, advice string) ([]core.Candidate, error) {
	if len(agents) == 0 {
		return nil, nil
	}
	solver, critics := agents[0], agents[1:]

	draft, err := solver.Ask(ctx, draftPrompt(task, previousPlan, advice))
	if err != nil {
		return nil, err
	}
	if len(critics) == 0 {
		return []core.Candidate{{Proposer: solver.Name(), Content: draft}}, nil
	}

	critiques, err := gatherCritiques(ctx, critics, task, draft, v.parallel)
	if err != nil {
		return nil, err
	}

	revised, err := solver.Ask(ctx, revisePrompt(task, draft, critics, critiques, ""))
	if err != nil {
		return nil, err
	}

	return []core.Candidate{
		{Proposer: solver.Name(), Content: revised},
		{Proposer: solver.Name(), Content: draft},
	}, nil
}

// gatherCritiques asks every critic to review the draft. With parallel set,
// critics are solicited concurrently and the first failure cancels the rest;
// either way the result slice is indexed by roster position.
func gatherCritiques(ctx context.Context, critics []core.Actor, task, draft string, parallel bool) ([]string, error) {
	out := make([]string, len(critics))

	if !parallel {
		for i, critic := range critics {
			reply, err := critic.Ask(ctx, critiquePrompt(task, draft))
			if err != nil {
				return nil, err
			}
			out[i] = reply
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, critic := range critics {
		g.Go(func() error {
			reply, err := critic.Ask(gctx, critiquePrompt(task, draft))
			if err != nil {
				return err
			}
			out[i] = reply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func draftPrompt(task, previousPlan, advice string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Previous solution:\n%s\n\n", previousPlan)
	fmt.Fprintf(&b, "Feedback received:\n%s\n\n", advice)
	b.WriteString("Propose a complete, improved solution to the task. Reply with only the solution.")
	return b.String()
}

func critiquePrompt(task, draft string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Proposed solution:\n%s\n\n", draft)
	b.WriteString("Point out flaws and concrete improvements. Reply with your critique.")
	return b.String()
}

func revisePrompt(task, draft string, critics []core.Actor, critiques []string, directive string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Your proposed solution:\n%s\n\n", draft)
	for i, critique := range critiques {
		fmt.Fprintf(&b, "Critique from %s:\n%s\n\n", critics[i].Name(), critique)
	}
	if directive != "" {
		fmt.Fprintf(&b, "Manager directive:\n%s\n\n", directive)
		b.WriteString("Revise the solution to address every critique and follow the directive. Reply with only the final solution.")
		return b.String()
	}
	b.WriteString("Revise the solution to address every critique. Reply with only the final solution.")
	return b.String()
}
