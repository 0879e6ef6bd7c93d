package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

func init() {
	MustRegister("tool", func(cfg Config) (core.Executor, error) {
		if cfg.Actor == nil {
			return nil, rterrors.New(rterrors.CodeConfiguration,
				"tool executor requires an executor actor", nil)
		}
		if len(cfg.Tools) == 0 {
			return nil, rterrors.New(rterrors.CodeConfiguration,
				"tool executor requires at least one tool", nil)
		}
		toolbox := make(map[string]core.Tool, len(cfg.Tools))
		order := make([]string, 0, len(cfg.Tools))
		for _, tool := range cfg.Tools {
			if _, dup := toolbox[tool.Name()]; dup {
				return nil, rterrors.New(rterrors.CodeConfiguration,
					fmt.Sprintf("duplicate tool %q", tool.Name()), nil)
			}
			toolbox[tool.Name()] = tool
			order = append(order, tool.Name())
		}
		return &ToolExecutor{actor: cfg.Actor, toolbox: toolbox, order: order}, nil
	})
}

// ToolExecutor asks the executor actor to translate the plan into tool
// invocations, one JSON object per line, runs them in order against the
// toolbox, and aggregates the outputs. A reply with no tool calls is taken
// as a direct answer and returned verbatim.
type ToolExecutor struct {
	actor   core.Actor
	toolbox map[string]core.Tool
	order   []string
}

type toolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Execute implements core.Executor.
func (e *ToolExecutor) Execute(ctx context.Context, plan string) (any, error) {
	reply, err := e.actor.Ask(ctx, e.prompt(plan))
	if err != nil {
		return nil, err
	}

	calls := parseToolCalls(reply)
	if len(calls) == 0 {
		return reply, nil
	}

	outputs := make([]string, 0, len(calls))
	for _, call := range calls {
		tool, ok := e.toolbox[call.Tool]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", call.Tool)
		}
		result, err := tool.Call(ctx, call.Args)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", call.Tool, err)
		}
		outputs = append(outputs, fmt.Sprintf("%s: %v", call.Tool, result))
	}
	return strings.Join(outputs, "\n"), nil
}

func (e *ToolExecutor) prompt(plan string) string {
	var b strings.Builder
	b.WriteString("You execute plans using the tools below.\n\nTools:\n")
	for _, name := range e.order {
		fmt.Fprintf(&b, "- %s: %s\n", name, e.toolbox[name].Description())
	}
	fmt.Fprintf(&b, "\nPlan:\n%s\n\n", plan)
	b.WriteString(`For each step emit one line of JSON: {"tool": "<name>", "args": {...}}. Emit only JSON lines.`)
	return b.String()
}

// parseToolCalls extracts JSON tool-call lines, ignoring prose and fences.
func parseToolCalls(reply string) []toolCall {
	var calls []toolCall
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var call toolCall
		if err := json.Unmarshal([]byte(line), &call); err != nil {
			continue
		}
		if call.Tool == "" {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}
