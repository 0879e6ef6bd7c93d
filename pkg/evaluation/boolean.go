package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
)

const defaultBooleanInstruction = "Decide whether the result fully solves the task, and give concrete advice for the next round."

func init() {
	MustRegister("boolean", func(cfg Config) (core.Evaluator, error) {
		return &Boolean{instruction: cfg.Prompt}, nil
	})
}

// Boolean asks the evaluator actor for an accept/decline verdict. The reply
// must be JSON of the form {"accepted": true|false, "advice": "..."}; a
// missing or malformed verdict yields an unrecognized score.
type Boolean struct {
	instruction string
}

// Evaluate implements core.Evaluator.
func (b *Boolean) Evaluate(ctx context.Context, evaluator core.Actor, result any, task string) (core.Outcome, error) {
	reply, err := evaluator.Ask(ctx, b.prompt(result, task))
	if err != nil {
		return core.Outcome{}, err
	}

	var parsed struct {
		Accepted *bool  `json:"accepted"`
		Advice   string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err != nil || parsed.Accepted == nil {
		return core.Outcome{Advice: strings.TrimSpace(reply)}, nil
	}
	return core.Outcome{Score: *parsed.Accepted, Advice: parsed.Advice}, nil
}

func (b *Boolean) prompt(result any, task string) string {
	instruction := b.instruction
	if instruction == "" {
		instruction = defaultBooleanInstruction
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task:\n%s\n\n", task)
	fmt.Fprintf(&sb, "Result:\n%v\n\n", result)
	sb.WriteString(instruction)
	sb.WriteString("\n\n")
	sb.WriteString(`Reply with JSON only: {"accepted": true|false, "advice": "..."}`)
	return sb.String()
}
