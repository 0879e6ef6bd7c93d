package execution

import (
	"context"
	"fmt"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

const defaultActorInstruction = "Carry out the following plan and report the outcome."

func init() {
	MustRegister("actor", func(cfg Config) (core.Executor, error) {
		if cfg.Actor == nil {
			return nil, rterrors.New(rterrors.CodeConfiguration,
				"actor executor requires an executor actor", nil)
		}
		return &ActorExecutor{actor: cfg.Actor, instruction: cfg.Prompt}, nil
	})
}

// ActorExecutor prompts a dedicated executor actor to carry out the plan;
// the actor's reply is the execution result.
type ActorExecutor struct {
	actor       core.Actor
	instruction string
}

// Execute implements core.Executor.
func (e *ActorExecutor) Execute(ctx context.Context, plan string) (any, error) {
	instruction := e.instruction
	if instruction == "" {
		instruction = defaultActorInstruction
	}
	reply, err := e.actor.Ask(ctx, fmt.Sprintf("%s\n\nPlan:\n%s", instruction, plan))
	if err != nil {
		return nil, err
	}
	return reply, nil
}
