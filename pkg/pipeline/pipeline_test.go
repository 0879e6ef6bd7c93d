package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
	rttesting "github.com/jllopis/roundtable/pkg/testing"
)

type assignFunc func(ctx context.Context, assigner core.Actor, candidates []core.Actor, advice, task string) ([]core.Actor, error)

func (f assignFunc) Assign(ctx context.Context, assigner core.Actor, candidates []core.Actor, advice, task string) ([]core.Actor, error) {
	return f(ctx, assigner, candidates, advice, task)
}

type planFunc func(ctx context.Context, agents []core.Actor, task, previousPlan, advice string) ([]core.Candidate, error)

func (f planFunc) Plan(ctx context.Context, agents []core.Actor, task, previousPlan, advice string) ([]core.Candidate, error) {
	return f(ctx, agents, task, previousPlan, advice)
}

type execFunc func(ctx context.Context, plan string) (any, error)

func (f execFunc) Execute(ctx context.Context, plan string) (any, error) {
	return f(ctx, plan)
}

type evalFunc func(ctx context.Context, evaluator core.Actor, result any, task string) (core.Outcome, error)

func (f evalFunc) Evaluate(ctx context.Context, evaluator core.Actor, result any, task string) (core.Outcome, error) {
	return f(ctx, evaluator, result, task)
}

// managedPlanner declares the manager-guided capability and counts which
// protocol the controller dispatched.
type managedPlanner struct {
	standardCalls int
	managedCalls  int
	candidates    []core.Candidate
}

func (m *managedPlanner) Plan(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
	m.standardCalls++
	return m.candidates, nil
}

func (m *managedPlanner) PlanWithManager(_ context.Context, _ []core.Actor, _ core.Actor, _, _, _ string) ([]core.Candidate, error) {
	m.managedCalls++
	return m.candidates, nil
}

func testRoster() *core.Roster {
	return &core.Roster{
		Assigner:  rttesting.NewStaticActor("assigner", ""),
		Solver:    rttesting.NewStaticActor("solver", ""),
		Critics:   []core.Actor{rttesting.NewStaticActor("critic", "")},
		Evaluator: rttesting.NewStaticActor("evaluator", ""),
	}
}

func passthroughAssign() assignFunc {
	return func(_ context.Context, _ core.Actor, candidates []core.Actor, _, _ string) ([]core.Actor, error) {
		return candidates, nil
	}
}

func staticPlan(content string) planFunc {
	return func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		return []core.Candidate{{Proposer: "solver", Content: content}}, nil
	}
}

func echoExec() execFunc {
	return func(_ context.Context, plan string) (any, error) {
		return plan, nil
	}
}

func staticEval(score any, advice string) evalFunc {
	return func(_ context.Context, _ core.Actor, _ any, _ string) (core.Outcome, error) {
		return core.Outcome{Score: score, Advice: advice}, nil
	}
}

func newTestController(t *testing.T, score any, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithAssigner(passthroughAssign()),
		WithDecisionMaker(staticPlan("the plan")),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(score, "tighten the plan")),
	}
	c, err := New(testRoster(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetTaskDescription("solve the task"); err != nil {
		t.Fatalf("SetTaskDescription: %v", err)
	}
	return c
}

func TestStepIncrementsTurnExactlyOnce(t *testing.T) {
	rejecting := newTestController(t, false)
	round, err := rejecting.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if rejecting.TurnCount() != 1 {
		t.Errorf("turn count after reject = %d, want 1", rejecting.TurnCount())
	}
	if round.State != StateRejected || round.Success {
		t.Errorf("rejected round reported state %s success %v", round.State, round.Success)
	}

	accepting := newTestController(t, true)
	round, err = accepting.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if accepting.TurnCount() != 1 {
		t.Errorf("turn count after accept = %d, want 1", accepting.TurnCount())
	}
	if round.State != StateAccepted || !round.Success {
		t.Errorf("accepted round reported state %s success %v", round.State, round.Success)
	}
}

func TestIsDoneOnBudgetOrSuccess(t *testing.T) {
	c := newTestController(t, false, WithMaxTurns(2))
	if c.IsDone() {
		t.Fatal("fresh controller should not be done")
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.IsDone() {
		t.Fatal("one of two turns spent, should not be done")
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !c.IsDone() {
		t.Fatal("budget spent, should be done")
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %s, want %s", c.State(), StateTerminated)
	}

	accepted := newTestController(t, true, WithMaxTurns(5))
	if _, err := accepted.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !accepted.IsDone() {
		t.Fatal("accepted round should finish the loop before the budget")
	}
}

func TestAcceptancePolicy(t *testing.T) {
	cases := []struct {
		name      string
		score     any
		threshold float64
		want      bool
	}{
		{"bool true", true, DefaultAcceptThreshold, true},
		{"bool false", false, DefaultAcceptThreshold, false},
		{"ratings all at threshold", []float64{9, 8, 10}, DefaultAcceptThreshold, true},
		{"ratings one below", []float64{9, 7, 10}, DefaultAcceptThreshold, false},
		{"int ratings", []int{9, 9}, DefaultAcceptThreshold, true},
		{"decoded json ratings", []any{float64(9), json.Number("8.5")}, DefaultAcceptThreshold, true},
		{"mixed non-numeric", []any{float64(9), "great"}, DefaultAcceptThreshold, false},
		{"empty sequence", []float64{}, DefaultAcceptThreshold, false},
		{"nil score", nil, DefaultAcceptThreshold, false},
		{"prose score", "looks good to me", DefaultAcceptThreshold, false},
		{"lowered threshold", []float64{6, 6}, 5, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(t, tc.score, WithAcceptThreshold(tc.threshold))
			round, err := c.Step(context.Background())
			if err != nil {
				t.Fatalf("Step: %v", err)
			}
			if round.Success != tc.want {
				t.Errorf("score %#v: success = %v, want %v", tc.score, round.Success, tc.want)
			}
			if c.TurnCount() != 1 {
				t.Errorf("score %#v: turn count = %d, want 1", tc.score, c.TurnCount())
			}
		})
	}
}

func TestManagerGuidedDispatch(t *testing.T) {
	candidates := []core.Candidate{{Proposer: "solver", Content: "managed plan"}}

	// Capability and manager present: manager-guided protocol.
	planner := &managedPlanner{candidates: candidates}
	roster := testRoster()
	roster.Manager = rttesting.NewStaticActor("manager", "")
	c, err := New(roster,
		WithAssigner(passthroughAssign()),
		WithDecisionMaker(planner),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(false, "")),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetTaskDescription("task"); err != nil {
		t.Fatalf("SetTaskDescription: %v", err)
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if planner.managedCalls != 1 || planner.standardCalls != 0 {
		t.Errorf("with manager: managed=%d standard=%d, want 1/0", planner.managedCalls, planner.standardCalls)
	}

	// Capability without a manager: standard protocol.
	planner = &managedPlanner{candidates: candidates}
	c = newTestController(t, false, WithDecisionMaker(planner))
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if planner.managedCalls != 0 || planner.standardCalls != 1 {
		t.Errorf("without manager: managed=%d standard=%d, want 0/1", planner.managedCalls, planner.standardCalls)
	}

	// Manager present but the decision maker lacks the capability: standard.
	calls := 0
	plain := planFunc(func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		calls++
		return candidates, nil
	})
	roster = testRoster()
	roster.Manager = rttesting.NewStaticActor("manager", "")
	c, err = New(roster,
		WithAssigner(passthroughAssign()),
		WithDecisionMaker(plain),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(false, "")),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetTaskDescription("task"); err != nil {
		t.Fatalf("SetTaskDescription: %v", err)
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if calls != 1 {
		t.Errorf("plain planner calls = %d, want 1", calls)
	}
}

func TestOnlyFirstCandidateReachesExecutor(t *testing.T) {
	twoCandidates := planFunc(func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		return []core.Candidate{
			{Proposer: "solver", Content: "primary"},
			{Proposer: "solver", Content: "secondary"},
		}, nil
	})

	var executed []string
	recorder := execFunc(func(_ context.Context, plan string) (any, error) {
		executed = append(executed, plan)
		return plan, nil
	})

	c := newTestController(t, false, WithDecisionMaker(twoCandidates), WithExecutor(recorder))
	round, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(executed) != 1 || executed[0] != "primary" {
		t.Errorf("executed plans = %v, want [primary]", executed)
	}
	if round.Plan != "primary" {
		t.Errorf("round plan = %q, want primary", round.Plan)
	}
}

func TestResetKeepsSuccess(t *testing.T) {
	c := newTestController(t, true)
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !c.Success() || c.TurnCount() != 1 {
		t.Fatalf("precondition failed: success=%v turns=%d", c.Success(), c.TurnCount())
	}

	c.Reset()

	if c.TurnCount() != 0 {
		t.Errorf("turn count after Reset = %d, want 0", c.TurnCount())
	}
	if !c.Success() {
		t.Error("success must survive Reset")
	}
	if !c.IsDone() {
		t.Error("a controller that accepted once stays done after Reset")
	}
}

func TestResetRestoresCarriedState(t *testing.T) {
	var gotAdvice, gotPrevious []string
	capture := planFunc(func(_ context.Context, _ []core.Actor, _, previousPlan, advice string) ([]core.Candidate, error) {
		gotAdvice = append(gotAdvice, advice)
		gotPrevious = append(gotPrevious, previousPlan)
		return []core.Candidate{{Proposer: "solver", Content: "plan A"}}, nil
	})

	c := newTestController(t, false, WithDecisionMaker(capture))
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	// Second round sees the advice and plan carried from the first.
	if gotAdvice[1] != "tighten the plan" {
		t.Errorf("second round advice = %q", gotAdvice[1])
	}
	if gotPrevious[1] != "plan A" {
		t.Errorf("second round previous plan = %q", gotPrevious[1])
	}

	c.Reset()
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	// After Reset the carried state is back at the initial placeholders.
	if gotAdvice[2] != "No advice yet." {
		t.Errorf("post-Reset advice = %q, want initial placeholder", gotAdvice[2])
	}
	if gotPrevious[2] != "No solution yet." {
		t.Errorf("post-Reset previous plan = %q, want initial placeholder", gotPrevious[2])
	}
}

func TestSingleTurnAccept(t *testing.T) {
	c := newTestController(t, true, WithMaxTurns(1))
	round, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !round.Success || !c.IsDone() {
		t.Errorf("success=%v done=%v, want both true", round.Success, c.IsDone())
	}
	if _, err := c.Step(context.Background()); err == nil {
		t.Error("Step after done should fail")
	}
}

func TestBudgetExhaustedWithoutSuccess(t *testing.T) {
	c := newTestController(t, false, WithMaxTurns(3))
	for i := 0; i < 3; i++ {
		round, err := c.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if round.Turn != i {
			t.Errorf("round %d reported turn %d", i, round.Turn)
		}
	}
	if c.TurnCount() != 3 {
		t.Errorf("turn count = %d, want 3", c.TurnCount())
	}
	if c.Success() {
		t.Error("success should stay false after three rejects")
	}
	if !c.IsDone() {
		t.Error("budget spent, controller should be done")
	}
}

func TestEmptyRoleAssignmentIsFatal(t *testing.T) {
	empty := assignFunc(func(_ context.Context, _ core.Actor, _ []core.Actor, _, _ string) ([]core.Actor, error) {
		return nil, nil
	})
	c := newTestController(t, true, WithAssigner(empty))

	_, err := c.Step(context.Background())
	if err == nil {
		t.Fatal("expected empty roster error")
	}
	if !rterrors.IsCode(err, rterrors.CodeEmptyRoster) {
		t.Errorf("error code = %v, want empty roster", rterrors.CodeOf(err))
	}
	if c.TurnCount() != 0 {
		t.Errorf("failed round must not count turns, got %d", c.TurnCount())
	}
	if c.Success() {
		t.Error("failed round must not set success")
	}
}

func TestEmptyPlanIsFatal(t *testing.T) {
	noCandidates := planFunc(func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		return []core.Candidate{}, nil
	})
	c := newTestController(t, true, WithDecisionMaker(noCandidates))

	_, err := c.Step(context.Background())
	if err == nil {
		t.Fatal("expected empty plan error")
	}
	if !rterrors.IsCode(err, rterrors.CodeEmptyPlan) {
		t.Errorf("error code = %v, want empty plan", rterrors.CodeOf(err))
	}
	if c.TurnCount() != 0 {
		t.Errorf("failed round must not count turns, got %d", c.TurnCount())
	}
}

func TestExecutorFailurePreservesCause(t *testing.T) {
	boom := fmt.Errorf("sandbox unavailable")
	failing := execFunc(func(_ context.Context, _ string) (any, error) {
		return nil, boom
	})
	c := newTestController(t, true, WithExecutor(failing))

	_, err := c.Step(context.Background())
	if err == nil {
		t.Fatal("expected executor error")
	}
	if !rterrors.IsCode(err, rterrors.CodeExecutor) {
		t.Errorf("error code = %v, want executor", rterrors.CodeOf(err))
	}
	if !stderrors.Is(err, boom) {
		t.Error("original executor error must stay reachable through the chain")
	}
	if c.TurnCount() != 0 {
		t.Errorf("failed round must not count turns, got %d", c.TurnCount())
	}
}

func TestEvaluatorHardFailureIsFatal(t *testing.T) {
	failing := evalFunc(func(_ context.Context, _ core.Actor, _ any, _ string) (core.Outcome, error) {
		return core.Outcome{}, fmt.Errorf("judge offline")
	})
	c := newTestController(t, true, WithEvaluator(failing))

	_, err := c.Step(context.Background())
	if err == nil {
		t.Fatal("expected evaluator error")
	}
	if !rterrors.IsCode(err, rterrors.CodeEvaluator) {
		t.Errorf("error code = %v, want evaluator", rterrors.CodeOf(err))
	}
	if c.TurnCount() != 0 {
		t.Errorf("failed round must not count turns, got %d", c.TurnCount())
	}
}

func TestCancellationDuringDecisionAborts(t *testing.T) {
	blocking := planFunc(func(ctx context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := newTestController(t, true, WithDecisionMaker(blocking))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Step(ctx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !rterrors.IsCode(err, rterrors.CodeCanceled) {
		t.Errorf("error code = %v, want canceled", rterrors.CodeOf(err))
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Error("context.Canceled must stay reachable through the chain")
	}
	if c.TurnCount() != 0 || c.Success() {
		t.Errorf("aborted round must leave turns/success untouched, got %d/%v", c.TurnCount(), c.Success())
	}
}

func TestTaskDescriptionImmutable(t *testing.T) {
	c, err := New(testRoster(),
		WithAssigner(passthroughAssign()),
		WithDecisionMaker(staticPlan("p")),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(true, "")),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Step(context.Background()); err == nil {
		t.Error("Step without a task should fail")
	}

	if err := c.SetTaskDescription("  "); err == nil {
		t.Error("blank task should be rejected")
	}
	if err := c.SetTaskDescription("first task"); err != nil {
		t.Fatalf("SetTaskDescription: %v", err)
	}
	if err := c.SetTaskDescription("second task"); err == nil {
		t.Error("second SetTaskDescription should fail")
	}
	if c.TaskDescription() != "first task" {
		t.Errorf("task = %q, want the first one", c.TaskDescription())
	}
}

func TestSeedAdviceReachesFirstRound(t *testing.T) {
	var firstAdvice string
	plan := planFunc(func(_ context.Context, _ []core.Actor, _, _, advice string) ([]core.Candidate, error) {
		if firstAdvice == "" {
			firstAdvice = advice
		}
		return []core.Candidate{{Proposer: "solver", Content: "the plan"}}, nil
	})
	c := newTestController(t, false, WithDecisionMaker(plan))

	if err := c.SeedAdvice("   "); err != nil {
		t.Fatalf("blank SeedAdvice: %v", err)
	}
	if err := c.SeedAdvice("reuse the staging cluster"); err != nil {
		t.Fatalf("SeedAdvice: %v", err)
	}
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if firstAdvice != "reuse the staging cluster" {
		t.Errorf("first round advice = %q, want the seeded advice", firstAdvice)
	}

	err := c.SeedAdvice("too late")
	if !rterrors.IsCode(err, rterrors.CodeConfiguration) {
		t.Errorf("SeedAdvice after a round returned %v, want a configuration error", err)
	}
}

func TestSessionIDDefaultsAndOverrides(t *testing.T) {
	c := newTestController(t, true)
	if c.SessionID() == "" {
		t.Error("controller without WithSessionID should generate a session id")
	}

	tagged := newTestController(t, true, WithSessionID("sess-fixed"))
	if tagged.SessionID() != "sess-fixed" {
		t.Errorf("SessionID() = %q, want sess-fixed", tagged.SessionID())
	}
}

func TestEventsEmittedInStageOrder(t *testing.T) {
	collector := rttesting.NewEventCollector()
	c := newTestController(t, true,
		WithEventEmitter(collector),
		WithSessionID("session-1"),
	)

	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	want := []core.EventType{
		core.EventRoundStarted,
		core.EventRolesAssigned,
		core.EventPlanProposed,
		core.EventPlanExecuted,
		core.EventResultEvaluated,
		core.EventRoundAccepted,
	}
	got := collector.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("event count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	for _, ev := range collector.Events() {
		if ev.SessionID != "session-1" {
			t.Errorf("event %s session = %q", ev.Type, ev.SessionID)
		}
		if ev.Turn != 0 {
			t.Errorf("event %s turn = %d, want 0", ev.Type, ev.Turn)
		}
	}
}

func TestFailedStageEmitsFailureEvent(t *testing.T) {
	collector := rttesting.NewEventCollector()
	failing := execFunc(func(_ context.Context, _ string) (any, error) {
		return nil, fmt.Errorf("no runtime")
	})
	c := newTestController(t, true, WithExecutor(failing), WithEventEmitter(collector))

	if _, err := c.Step(context.Background()); err == nil {
		t.Fatal("expected executor error")
	}

	failures := collector.ByType(core.EventRoundFailed)
	if len(failures) != 1 {
		t.Fatalf("failure events = %d, want 1", len(failures))
	}
	if failures[0].Source != "execution" {
		t.Errorf("failure source = %q, want execution", failures[0].Source)
	}
	if msg, _ := failures[0].Payload["error"].(string); msg == "" {
		t.Error("failure payload should carry the error text")
	}
	if collector.HasEvent(core.EventRoundAccepted) || collector.HasEvent(core.EventRoundRejected) {
		t.Error("aborted round must not emit a verdict event")
	}
}

func TestRoundLogRecordsStages(t *testing.T) {
	c := newTestController(t, true)
	round, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	wantSources := []string{
		"role_assigner", // solver
		"role_assigner", // critic
		"decision_maker",
		"executor",
		"evaluator",
		"system",
	}
	if len(round.Log) != len(wantSources) {
		t.Fatalf("log entries = %d, want %d (%v)", len(round.Log), len(wantSources), round.Log)
	}
	for i, want := range wantSources {
		if round.Log[i].Source != want {
			t.Errorf("log[%d].Source = %q, want %q", i, round.Log[i].Source, want)
		}
	}
	if round.Log[2].Content != "the plan" {
		t.Errorf("decision log content = %q", round.Log[2].Content)
	}
	if round.Log[len(round.Log)-1].Content != "Accepted." {
		t.Errorf("verdict log content = %q", round.Log[len(round.Log)-1].Content)
	}
}

func TestStrategyWiring(t *testing.T) {
	var (
		assignerName   string
		candidateNames []string
		gotAdvice      string
		gotTask        string
		evalActorName  string
		evalResult     any
	)

	capture := assignFunc(func(_ context.Context, assigner core.Actor, candidates []core.Actor, advice, task string) ([]core.Actor, error) {
		assignerName = assigner.Name()
		for _, a := range candidates {
			candidateNames = append(candidateNames, a.Name())
		}
		gotAdvice = advice
		gotTask = task
		return candidates, nil
	})
	eval := evalFunc(func(_ context.Context, evaluator core.Actor, result any, _ string) (core.Outcome, error) {
		evalActorName = evaluator.Name()
		evalResult = result
		return core.Outcome{Score: false}, nil
	})

	c := newTestController(t, nil, WithAssigner(capture), WithEvaluator(eval))
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if assignerName != "assigner" {
		t.Errorf("assigner actor = %q", assignerName)
	}
	if len(candidateNames) != 2 || candidateNames[0] != "solver" || candidateNames[1] != "critic" {
		t.Errorf("candidates = %v, want [solver critic]", candidateNames)
	}
	if gotAdvice != "No advice yet." {
		t.Errorf("first round advice = %q", gotAdvice)
	}
	if gotTask != "solve the task" {
		t.Errorf("task = %q", gotTask)
	}
	if evalActorName != "evaluator" {
		t.Errorf("evaluator actor = %q", evalActorName)
	}
	if evalResult != "the plan" {
		t.Errorf("evaluator received %v, want the executed plan", evalResult)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); !stderrors.Is(err, ErrNilRoster) {
		t.Errorf("nil roster error = %v", err)
	}

	incomplete := &core.Roster{Solver: rttesting.NewStaticActor("solver", "")}
	if _, err := New(incomplete); !rterrors.IsCode(err, rterrors.CodeConfiguration) {
		t.Errorf("invalid roster error = %v", err)
	}

	_, err := New(testRoster(),
		WithAssigner(passthroughAssign()),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(true, "")),
	)
	if !stderrors.Is(err, ErrMissingDecisionMaker) {
		t.Errorf("missing decision maker error = %v", err)
	}

	_, err = New(testRoster(),
		WithAssigner(passthroughAssign()),
		WithDecisionMaker(staticPlan("p")),
		WithExecutor(echoExec()),
		WithEvaluator(staticEval(true, "")),
		WithMaxTurns(0),
	)
	if !rterrors.IsCode(err, rterrors.CodeConfiguration) {
		t.Errorf("zero max turns error = %v", err)
	}
}
