package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
)

func init() {
	MustRegister("horizontal", func(cfg Config) (core.DecisionMaker, error) {
		return &Horizontal{}, nil
	})
}

// Horizontal is the open-discussion protocol: every agent contributes in
// roster order, each seeing what was said before, and the first agent
// synthesizes the discussion into a single plan candidate.
type Horizontal struct{}

// Plan implements core.DecisionMaker.
func (h *Horizontal) Plan(ctx context.Context, agents []core.Actor, task, previousPlan, advice string) ([]core.Candidate, error) {
	if len(agents) == 0 {
		return nil, nil
	}

	discussion := make([]string, 0, len(agents))
	for _, agent := range agents {
		reply, err := agent.Ask(ctx, contributionPrompt(task, previousPlan, advice, discussion))
		if err != nil {
			return nil, err
		}
		discussion = append(discussion, fmt.Sprintf("%s: %s", agent.Name(), reply))
	}

	synthesizer := agents[0]
	final, err := synthesizer.Ask(ctx, synthesisPrompt(task, discussion))
	if err != nil {
		return nil, err
	}

	return []core.Candidate{{Proposer: synthesizer.Name(), Content: final}}, nil
}

func contributionPrompt(task, previousPlan, advice string, discussion []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Previous solution:\n%s\n\n", previousPlan)
	fmt.Fprintf(&b, "Feedback received:\n%s\n\n", advice)
	if len(discussion) == 0 {
		b.WriteString("Discussion so far:\n(none yet)\n\n")
	} else {
		fmt.Fprintf(&b, "Discussion so far:\n%s\n\n", strings.Join(discussion, "\n"))
	}
	b.WriteString("Add your contribution to the discussion.")
	return b.String()
}

func synthesisPrompt(task string, discussion []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Discussion:\n%s\n\n", strings.Join(discussion, "\n"))
	b.WriteString("Synthesize the discussion into a single final solution. Reply with only the solution.")
	return b.String()
}
