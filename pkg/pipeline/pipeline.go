// Package pipeline implements the round controller: a fixed stage loop that
// drives a roster of actors through role assignment, decision making,
// execution, and evaluation until the task succeeds or the turn budget runs
// out.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/telemetry"
)

const (
	// DefaultMaxTurns bounds a controller when no explicit budget is given.
	DefaultMaxTurns = 10

	// DefaultAcceptThreshold is the minimum rating every score in a numeric
	// verdict must reach for the round to be accepted.
	DefaultAcceptThreshold = 8.0
)

// Initial carried deliberation state. The first round has no history, so the
// strategies receive these placeholders.
const (
	initialAdvice       = "No advice yet."
	initialPreviousPlan = "No solution yet."
)

var (
	ErrNilRoster            = rterrors.New(rterrors.CodeConfiguration, "roster is required", nil)
	ErrMissingAssigner      = rterrors.New(rterrors.CodeConfiguration, "role assignment strategy is required", nil)
	ErrMissingDecisionMaker = rterrors.New(rterrors.CodeConfiguration, "decision making strategy is required", nil)
	ErrMissingExecutor      = rterrors.New(rterrors.CodeConfiguration, "execution strategy is required", nil)
	ErrMissingEvaluator     = rterrors.New(rterrors.CodeConfiguration, "evaluation strategy is required", nil)
)

// LogEntry is one ordered record in a round log. Source names the stage
// component that produced it.
type LogEntry struct {
	Source  string
	Content string
}

// Round reports what one Step produced: the plan, its execution result, the
// evaluation verdict, and the per-stage log.
type Round struct {
	Turn    int
	State   State
	Plan    string
	Result  any
	Score   any
	Advice  string
	Log     []LogEntry
	Success bool
}

// Controller runs rounds over a fixed roster. It owns the turn budget, the
// success flag, and the carried advice and previous plan that link one round
// to the next. A Controller is not safe for concurrent Step calls; callers
// serialize.
type Controller struct {
	roster *core.Roster

	assigner  core.Assigner
	decision  core.DecisionMaker
	managed   core.ManagerGuidedPlanner
	executor  core.Executor
	evaluator core.Evaluator

	maxTurns  int
	threshold float64
	sessionID string

	emitter core.EventEmitter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics

	state        State
	turnCount    int
	success      bool
	task         string
	taskSet      bool
	advice       string
	previousPlan string
}

// Option configures a Controller during construction.
type Option func(*Controller) error

// New builds a Controller for the given roster. The four stage strategies are
// required; everything else has defaults. The manager-guided capability of
// the decision maker is resolved here, once, by interface assertion.
func New(roster *core.Roster, opts ...Option) (*Controller, error) {
	if roster == nil {
		return nil, ErrNilRoster
	}
	if err := roster.Validate(); err != nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "invalid roster", err)
	}

	c := &Controller{
		roster:       roster,
		maxTurns:     DefaultMaxTurns,
		threshold:    DefaultAcceptThreshold,
		emitter:      core.NoopEventEmitter{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("roundtable/pipeline"),
		sessionID:    core.NewSessionID(),
		state:        StateIdle,
		advice:       initialAdvice,
		previousPlan: initialPreviousPlan,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.assigner == nil {
		return nil, ErrMissingAssigner
	}
	if c.decision == nil {
		return nil, ErrMissingDecisionMaker
	}
	if c.executor == nil {
		return nil, ErrMissingExecutor
	}
	if c.evaluator == nil {
		return nil, ErrMissingEvaluator
	}

	// The capability is declared through the interface, never discovered by
	// inspecting concrete type names.
	if mg, ok := c.decision.(core.ManagerGuidedPlanner); ok {
		c.managed = mg
	}

	return c, nil
}

// WithAssigner sets the role assignment strategy.
func WithAssigner(a core.Assigner) Option {
	return func(c *Controller) error {
		if a == nil {
			return ErrMissingAssigner
		}
		c.assigner = a
		return nil
	}
}

// WithDecisionMaker sets the decision making strategy.
func WithDecisionMaker(d core.DecisionMaker) Option {
	return func(c *Controller) error {
		if d == nil {
			return ErrMissingDecisionMaker
		}
		c.decision = d
		return nil
	}
}

// WithExecutor sets the execution strategy.
func WithExecutor(e core.Executor) Option {
	return func(c *Controller) error {
		if e == nil {
			return ErrMissingExecutor
		}
		c.executor = e
		return nil
	}
}

// WithEvaluator sets the evaluation strategy.
func WithEvaluator(e core.Evaluator) Option {
	return func(c *Controller) error {
		if e == nil {
			return ErrMissingEvaluator
		}
		c.evaluator = e
		return nil
	}
}

// WithMaxTurns sets the turn budget.
func WithMaxTurns(n int) Option {
	return func(c *Controller) error {
		if n <= 0 {
			return rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("max turns must be positive, got %d", n), nil)
		}
		c.maxTurns = n
		return nil
	}
}

// WithAcceptThreshold sets the minimum rating for numeric verdicts.
func WithAcceptThreshold(t float64) Option {
	return func(c *Controller) error {
		c.threshold = t
		return nil
	}
}

// WithEventEmitter sets the per-stage observer. A nil emitter restores the
// no-op default.
func WithEventEmitter(e core.EventEmitter) Option {
	return func(c *Controller) error {
		if e == nil {
			c.emitter = core.NoopEventEmitter{}
			return nil
		}
		c.emitter = e
		return nil
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithSessionID tags rounds, events, and spans with a session identity.
func WithSessionID(id string) Option {
	return func(c *Controller) error {
		c.sessionID = id
		return nil
	}
}

// WithMetrics attaches the telemetry instruments. A nil *Metrics is valid and
// records nothing.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Controller) error {
		c.metrics = m
		return nil
	}
}

// SetTaskDescription fixes the task for this controller. The task is
// immutable: it can be set exactly once, before the first round.
func (c *Controller) SetTaskDescription(task string) error {
	if strings.TrimSpace(task) == "" {
		return rterrors.New(rterrors.CodeConfiguration, "task description must not be empty", nil)
	}
	if c.taskSet || c.turnCount > 0 {
		return rterrors.New(rterrors.CodeConfiguration, "task description is immutable once set", nil)
	}
	c.task = task
	c.taskSet = true
	return nil
}

// SeedAdvice preloads the advice carried into the first round, replacing the
// initial placeholder. Later rounds overwrite it with evaluator advice as
// usual. Seeding is only valid before the first round; blank advice is
// ignored.
func (c *Controller) SeedAdvice(advice string) error {
	if c.turnCount > 0 {
		return rterrors.New(rterrors.CodeConfiguration, "advice can only be seeded before the first round", nil)
	}
	if strings.TrimSpace(advice) == "" {
		return nil
	}
	c.advice = advice
	return nil
}

// TaskDescription returns the task set for this controller.
func (c *Controller) TaskDescription() string { return c.task }

// SessionID returns the session identity stamped on rounds and events.
func (c *Controller) SessionID() string { return c.sessionID }

// TurnCount returns the number of completed rounds.
func (c *Controller) TurnCount() int { return c.turnCount }

// Success reports whether any round has been accepted.
func (c *Controller) Success() bool { return c.success }

// MaxTurns returns the turn budget.
func (c *Controller) MaxTurns() int { return c.maxTurns }

// IsDone reports whether the loop is over: the turn budget is spent or a
// round has been accepted.
func (c *Controller) IsDone() bool {
	return c.turnCount >= c.maxTurns || c.success
}

// State returns the controller position in the round loop, or Terminated once
// IsDone reports true.
func (c *Controller) State() State {
	if c.IsDone() {
		return StateTerminated
	}
	return c.state
}

// Reset zeroes the turn counter and restores the carried advice and previous
// plan to their initial placeholders so the controller can run a fresh batch
// of rounds. The success flag survives Reset: a controller that accepted once
// keeps reporting success.
func (c *Controller) Reset() {
	c.turnCount = 0
	c.advice = initialAdvice
	c.previousPlan = initialPreviousPlan
	c.state = StateIdle
}

// Step runs one full round: assign roles, decide on a plan, execute it,
// evaluate the result, and apply the acceptance policy. The turn counter
// advances by exactly one whether the round is accepted or rejected. A stage
// failure aborts the round and leaves the turn counter and success flag
// untouched.
func (c *Controller) Step(ctx context.Context) (*Round, error) {
	if !c.taskSet {
		return nil, rterrors.New(rterrors.CodeConfiguration, "task description must be set before stepping", nil)
	}
	if c.IsDone() {
		return nil, rterrors.New(rterrors.CodeConfiguration, "turn budget spent or task succeeded; Reset to run more rounds", nil)
	}

	ctx, span := c.tracer.Start(ctx, "pipeline.round")
	defer span.End()
	span.SetAttributes(telemetry.SessionAttributes(c.sessionID, c.task, c.maxTurns)...)

	round := &Round{Turn: c.turnCount, Log: []LogEntry{}}

	c.logger.InfoContext(ctx, "round.started",
		slog.String("session_id", c.sessionID),
		slog.Int("turn", c.turnCount),
	)
	c.emit(ctx, core.EventRoundStarted, "controller", map[string]any{"turn": c.turnCount})

	c.state = StateRoleAssignment
	agents, err := c.assignRoles(ctx, round)
	if err != nil {
		return nil, c.fail(ctx, span, "role_assignment", err)
	}

	c.state = StateDecisionMaking
	plan, err := c.decide(ctx, round, agents)
	if err != nil {
		return nil, c.fail(ctx, span, "decision_making", err)
	}

	c.state = StateExecution
	result, err := c.execute(ctx, round, plan)
	if err != nil {
		return nil, c.fail(ctx, span, "execution", err)
	}

	c.state = StateEvaluation
	outcome, err := c.evaluate(ctx, round, result)
	if err != nil {
		return nil, c.fail(ctx, span, "evaluation", err)
	}

	accepted := c.accepted(outcome.Score)
	if accepted {
		c.state = StateAccepted
		c.success = true
		round.Log = append(round.Log, LogEntry{Source: "system", Content: "Accepted."})
		c.metrics.RecordRound(ctx, "accepted")
		c.emit(ctx, core.EventRoundAccepted, "controller", map[string]any{"turn": c.turnCount})
	} else {
		c.state = StateRejected
		round.Log = append(round.Log, LogEntry{Source: "system", Content: "Rejected."})
		c.metrics.RecordRound(ctx, "rejected")
		c.emit(ctx, core.EventRoundRejected, "controller", map[string]any{
			"turn":   c.turnCount,
			"advice": outcome.Advice,
		})
	}

	// Carry the deliberation state forward and close the round. The turn
	// advances exactly once per completed round, accepted or not.
	c.advice = outcome.Advice
	c.previousPlan = plan
	c.turnCount++

	round.State = c.state
	round.Plan = plan
	round.Result = result
	round.Score = outcome.Score
	round.Advice = outcome.Advice
	round.Success = c.success

	outcomeLabel := "rejected"
	if accepted {
		outcomeLabel = "accepted"
	}
	span.SetAttributes(telemetry.RoundAttributes(round.Turn, outcomeLabel)...)
	c.logger.InfoContext(ctx, "round.finished",
		slog.String("session_id", c.sessionID),
		slog.Int("turn", round.Turn),
		slog.String("outcome", outcomeLabel),
	)

	return round, nil
}

func (c *Controller) assignRoles(ctx context.Context, round *Round) ([]core.Actor, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.role_assignment")
	defer span.End()
	start := time.Now()

	agents, err := c.assigner.Assign(ctx, c.roster.Assigner, c.roster.Candidates(), c.advice, c.task)
	c.metrics.RecordStageDuration(ctx, "role_assignment", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("role assignment: %w", err)
	}
	if len(agents) == 0 {
		return nil, rterrors.New(rterrors.CodeEmptyRoster, "role assignment produced no actors", nil)
	}

	names := make([]string, len(agents))
	for i, agent := range agents {
		names[i] = agent.Name()
		round.Log = append(round.Log, LogEntry{
			Source:  "role_assigner",
			Content: fmt.Sprintf("%s: %s", agent.Name(), agent.RoleDescription()),
		})
	}
	span.SetAttributes(telemetry.RosterAttributes(names)...)
	c.logger.InfoContext(ctx, "round.roles_assigned",
		slog.Int("turn", c.turnCount),
		slog.Int("actors", len(agents)),
	)
	c.emit(ctx, core.EventRolesAssigned, "role_assigner", map[string]any{"actors": names})
	return agents, nil
}

func (c *Controller) decide(ctx context.Context, round *Round, agents []core.Actor) (string, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.decision_making")
	defer span.End()
	start := time.Now()

	var (
		candidates []core.Candidate
		err        error
	)
	protocol := "standard"
	if c.managed != nil && c.roster.HasManager() {
		protocol = "manager_guided"
		candidates, err = c.managed.PlanWithManager(ctx, agents, c.roster.Manager, c.task, c.previousPlan, c.advice)
	} else {
		candidates, err = c.decision.Plan(ctx, agents, c.task, c.previousPlan, c.advice)
	}
	c.metrics.RecordStageDuration(ctx, "decision_making", time.Since(start))
	if err != nil {
		// Decision making is the round's suspension point. When the caller
		// cancels, the abort is fatal and the turn stays uncounted.
		if ctx.Err() != nil {
			return "", rterrors.New(rterrors.CodeCanceled, "decision making canceled", err)
		}
		return "", fmt.Errorf("decision making: %w", err)
	}
	if len(candidates) == 0 {
		return "", rterrors.New(rterrors.CodeEmptyPlan, "decision making produced no candidates", nil)
	}

	// Only the first candidate becomes the round's plan. Later candidates are
	// dropped on purpose.
	plan := candidates[0].Content
	span.SetAttributes(telemetry.DecisionAttributes(protocol, len(candidates))...)
	round.Log = append(round.Log, LogEntry{Source: "decision_maker", Content: plan})
	c.logger.InfoContext(ctx, "round.plan_proposed",
		slog.Int("turn", c.turnCount),
		slog.String("protocol", protocol),
		slog.Int("candidates", len(candidates)),
	)
	c.emit(ctx, core.EventPlanProposed, "decision_maker", map[string]any{
		"plan":     plan,
		"proposer": candidates[0].Proposer,
		"protocol": protocol,
	})
	return plan, nil
}

func (c *Controller) execute(ctx context.Context, round *Round, plan string) (any, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.execution")
	defer span.End()
	start := time.Now()

	result, err := c.executor.Execute(ctx, plan)
	c.metrics.RecordStageDuration(ctx, "execution", time.Since(start))
	if err != nil {
		return nil, rterrors.New(rterrors.CodeExecutor, "execution failed", err)
	}

	round.Log = append(round.Log, LogEntry{Source: "executor", Content: fmt.Sprint(result)})
	c.logger.InfoContext(ctx, "round.plan_executed", slog.Int("turn", c.turnCount))
	c.emit(ctx, core.EventPlanExecuted, "executor", map[string]any{"result": result})
	return result, nil
}

func (c *Controller) evaluate(ctx context.Context, round *Round, result any) (core.Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.evaluation")
	defer span.End()
	start := time.Now()

	outcome, err := c.evaluator.Evaluate(ctx, c.roster.Evaluator, result, c.task)
	c.metrics.RecordStageDuration(ctx, "evaluation", time.Since(start))
	if err != nil {
		return core.Outcome{}, rterrors.New(rterrors.CodeEvaluator, "evaluation failed", err)
	}

	round.Log = append(round.Log, LogEntry{Source: "evaluator", Content: outcome.Advice})
	c.logger.InfoContext(ctx, "round.result_evaluated", slog.Int("turn", c.turnCount))
	c.emit(ctx, core.EventResultEvaluated, "evaluator", map[string]any{
		"score":  outcome.Score,
		"advice": outcome.Advice,
	})
	return outcome, nil
}

// accepted applies the acceptance policy to a verdict score. A bool accepts
// iff true; a numeric sequence accepts iff every rating reaches the
// threshold; anything else, empty sequences included, rejects.
func (c *Controller) accepted(score any) bool {
	switch v := score.(type) {
	case bool:
		return v
	case []float64:
		return allAtLeast(v, c.threshold)
	case []int:
		ratings := make([]float64, len(v))
		for i, n := range v {
			ratings[i] = float64(n)
		}
		return allAtLeast(ratings, c.threshold)
	case []any:
		ratings := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return false
			}
			ratings = append(ratings, f)
		}
		return allAtLeast(ratings, c.threshold)
	default:
		return false
	}
}

func (c *Controller) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	c.metrics.RecordError(ctx, err, stage)
	c.metrics.RecordRound(ctx, "failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	c.logger.ErrorContext(ctx, "round.failed",
		slog.String("session_id", c.sessionID),
		slog.Int("turn", c.turnCount),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	c.emit(ctx, core.EventRoundFailed, stage, map[string]any{"error": err.Error()})
	return err
}

func (c *Controller) emit(ctx context.Context, eventType core.EventType, source string, payload map[string]any) {
	c.emitter.Emit(ctx, core.NewEvent(eventType, source, c.sessionID, c.turnCount, payload))
}

func allAtLeast(ratings []float64, threshold float64) bool {
	if len(ratings) == 0 {
		return false
	}
	for _, r := range ratings {
		if r < threshold {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
