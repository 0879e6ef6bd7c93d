package core

import "context"

// Actor is a participant in a round: solver, critic, manager, evaluator, or
// role assigner. The controller treats actors as opaque beyond identity and
// role description; strategies talk to them through Ask.
type Actor interface {
	Name() string
	RoleDescription() string
	SetRoleDescription(desc string)
	Ask(ctx context.Context, prompt string) (string, error)
}

// Candidate is one proposed plan produced by decision making. Candidates are
// ordered; only the first one's Content becomes the round's plan.
type Candidate struct {
	Proposer string
	Content  string
}

// Outcome is the result of evaluation. Score is polymorphic: a bool, an
// ordered sequence of numeric ratings, or anything else, which the controller
// treats as a reject rather than an error.
type Outcome struct {
	Score  any
	Advice string
}

// Assigner selects and annotates the actors that participate in planning this
// round. The returned sequence must be non-empty and must respect the
// candidate ordering convention of the implementation.
type Assigner interface {
	Assign(ctx context.Context, assigner Actor, candidates []Actor, advice, task string) ([]Actor, error)
}

// DecisionMaker produces an ordered sequence of plan candidates for the round.
type DecisionMaker interface {
	Plan(ctx context.Context, agents []Actor, task, previousPlan, advice string) ([]Candidate, error)
}

// ManagerGuidedPlanner is the capability a decision maker declares to opt into
// the manager-guided protocol. The controller resolves this once at
// construction; the protocol is used only when the roster also has a manager.
type ManagerGuidedPlanner interface {
	DecisionMaker
	PlanWithManager(ctx context.Context, agents []Actor, manager Actor, task, previousPlan, advice string) ([]Candidate, error)
}

// Executor carries out a plan and returns an opaque result. The controller
// never inspects the result; it is handed to the evaluator as-is.
type Executor interface {
	Execute(ctx context.Context, plan string) (any, error)
}

// Evaluator scores an execution result against the task.
type Evaluator interface {
	Evaluate(ctx context.Context, evaluator Actor, result any, task string) (Outcome, error)
}

// Tool is a callable capability, typically backed by MCP.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args map[string]any) (any, error)
}
