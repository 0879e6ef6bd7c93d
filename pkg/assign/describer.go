package assign

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

func init() {
	MustRegister("describer", func(cfg Config) (core.Assigner, error) {
		return &Describer{}, nil
	})
}

// Describer asks the role assigner actor to write one role description per
// candidate. Descriptions are applied to the candidates in their original
// order, so the roster ordering convention is preserved.
type Describer struct{}

// Assign implements core.Assigner.
func (d *Describer) Assign(ctx context.Context, assigner core.Actor, candidates []core.Actor, advice, task string) ([]core.Actor, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	reply, err := assigner.Ask(ctx, describerPrompt(candidates, advice, task))
	if err != nil {
		return nil, err
	}

	descriptions := parseDescriptions(reply)
	if len(descriptions) < len(candidates) {
		return nil, rterrors.New(rterrors.CodeInternal,
			fmt.Sprintf("role assigner produced %d descriptions for %d participants", len(descriptions), len(candidates)), nil).
			WithContext("reply", reply)
	}

	for i, candidate := range candidates {
		candidate.SetRoleDescription(descriptions[i])
	}
	return candidates, nil
}

func describerPrompt(candidates []core.Actor, advice, task string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You assign roles to a team of %d participants solving a task together.\n\n", len(candidates))
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	if advice != "" {
		fmt.Fprintf(&b, "Feedback from the previous round:\n%s\n\n", advice)
	}
	b.WriteString("Participants:\n")
	for i, candidate := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, candidate.Name())
	}
	fmt.Fprintf(&b, "\nWrite exactly %d role descriptions, one per line, in the same order as the participants. Each line must contain only the role description for that participant.", len(candidates))
	return b.String()
}

// parseDescriptions splits a reply into one description per line, stripping
// list markers the model may add.
func parseDescriptions(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if i := strings.IndexAny(line, ".:"); i > 0 && i <= 3 && isDigits(line[:i]) {
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
