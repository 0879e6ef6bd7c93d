package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
)

const defaultScoredInstruction = "Score the result for correctness, completeness, and clarity, each from 0 to 10, and give concrete advice for the next round."

func init() {
	MustRegister("scored", func(cfg Config) (core.Evaluator, error) {
		return &Scored{instruction: cfg.Prompt}, nil
	})
}

// Scored asks the evaluator actor for a numeric rating sequence. The reply
// must be JSON of the form {"scores": [...], "advice": "..."}; anything else
// yields an unrecognized score and the reply text as advice.
type Scored struct {
	instruction string
}

// Evaluate implements core.Evaluator.
func (s *Scored) Evaluate(ctx context.Context, evaluator core.Actor, result any, task string) (core.Outcome, error) {
	reply, err := evaluator.Ask(ctx, s.prompt(result, task))
	if err != nil {
		return core.Outcome{}, err
	}

	var parsed struct {
		Scores []float64 `json:"scores"`
		Advice string    `json:"advice"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err != nil || len(parsed.Scores) == 0 {
		return core.Outcome{Advice: strings.TrimSpace(reply)}, nil
	}
	return core.Outcome{Score: parsed.Scores, Advice: parsed.Advice}, nil
}

func (s *Scored) prompt(result any, task string) string {
	instruction := s.instruction
	if instruction == "" {
		instruction = defaultScoredInstruction
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "Result:\n%v\n\n", result)
	b.WriteString(instruction)
	b.WriteString("\n\n")
	b.WriteString(`Reply with JSON only: {"scores": [...], "advice": "..."}`)
	return b.String()
}
