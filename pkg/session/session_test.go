package session

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jllopis/roundtable/pkg/archive"
	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/memory"
	"github.com/jllopis/roundtable/pkg/pipeline"
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

// fixedEmbedder maps every text to the same vector so any stored experience
// is a perfect match for any query.
type fixedEmbedder struct{ err error }

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}

type failingArchive struct{ err error }

func (a *failingArchive) Save(_ context.Context, _ archive.Record) error { return a.err }
func (a *failingArchive) List(_ context.Context, _ archive.Filter) ([]archive.Record, error) {
	return nil, a.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRoster() *core.Roster {
	return &core.Roster{
		Assigner:  rttesting.NewStaticActor("assigner", ""),
		Solver:    rttesting.NewStaticActor("solver", ""),
		Critics:   []core.Actor{rttesting.NewStaticActor("critic", "")},
		Evaluator: rttesting.NewStaticActor("evaluator", ""),
	}
}

func newTestController(t *testing.T, score any, opts ...pipeline.Option) *pipeline.Controller {
	t.Helper()
	base := []pipeline.Option{
		pipeline.WithAssigner(assignFunc(func(_ context.Context, _ core.Actor, candidates []core.Actor, _, _ string) ([]core.Actor, error) {
			return candidates, nil
		})),
		pipeline.WithDecisionMaker(planFunc(func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
			return []core.Candidate{{Proposer: "solver", Content: "the plan"}}, nil
		})),
		pipeline.WithExecutor(execFunc(func(_ context.Context, plan string) (any, error) {
			return plan, nil
		})),
		pipeline.WithEvaluator(evalFunc(func(_ context.Context, _ core.Actor, _ any, _ string) (core.Outcome, error) {
			return core.Outcome{Score: score, Advice: "tighten the plan"}, nil
		})),
		pipeline.WithLogger(quietLogger()),
	}
	c, err := pipeline.New(testRoster(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	if err := c.SetTaskDescription("solve the task"); err != nil {
		t.Fatalf("SetTaskDescription: %v", err)
	}
	return c
}

func newTestMemory(t *testing.T) *memory.ExperienceMemory {
	t.Helper()
	mem, err := memory.NewExperienceMemory(memory.NewInMemoryStore(), &fixedEmbedder{})
	if err != nil {
		t.Fatalf("NewExperienceMemory: %v", err)
	}
	return mem
}

func TestRunAcceptsAndSummarizes(t *testing.T) {
	collector := rttesting.NewEventCollector()
	sess, err := New(newTestController(t, true),
		WithEventEmitter(collector),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Success || summary.Turns != 1 {
		t.Errorf("summary success=%v turns=%d, want an accept on turn 1", summary.Success, summary.Turns)
	}
	if summary.FinalPlan != "the plan" || summary.FinalResult != "the plan" {
		t.Errorf("summary carried plan %q result %v", summary.FinalPlan, summary.FinalResult)
	}
	if summary.SessionID != sess.ID() || summary.SessionID == "" {
		t.Errorf("summary session id %q, session reports %q", summary.SessionID, sess.ID())
	}
	if summary.Elapsed <= 0 {
		t.Errorf("summary elapsed = %v, want positive", summary.Elapsed)
	}
	if summary.Task != "solve the task" {
		t.Errorf("summary task = %q", summary.Task)
	}

	finished := collector.ByType(core.EventSessionFinished)
	if len(finished) != 1 {
		t.Fatalf("session.finished events = %d, want 1", len(finished))
	}
	event := finished[0]
	if event.SessionID != sess.ID() {
		t.Errorf("event session id = %q, want %q", event.SessionID, sess.ID())
	}
	if success, _ := event.Payload["success"].(bool); !success {
		t.Errorf("event payload = %v, want success true", event.Payload)
	}
	if turns, _ := event.Payload["turns"].(int); turns != 1 {
		t.Errorf("event payload = %v, want turns 1", event.Payload)
	}
}

func TestRunArchivesEveryRound(t *testing.T) {
	store := archive.NewMemoryStore()
	sess, err := New(newTestController(t, false, pipeline.WithMaxTurns(3)),
		WithArchive(store),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Success || summary.Turns != 3 {
		t.Errorf("summary success=%v turns=%d, want 3 rejected rounds", summary.Success, summary.Turns)
	}

	records, err := store.List(context.Background(), archive.Filter{SessionID: sess.ID()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("archived records = %d, want 3", len(records))
	}
	for i, want := range []int{3, 2, 1} {
		if records[i].Turn != want {
			t.Errorf("record %d turn = %d, want %d (newest first)", i, records[i].Turn, want)
		}
	}
	first := records[len(records)-1]
	if first.State != string(pipeline.StateRejected) || first.Plan != "the plan" || first.Advice != "tighten the plan" {
		t.Errorf("record = %+v, want the round contents", first)
	}
}

func TestRunStopsOnFatalError(t *testing.T) {
	calls := 0
	failing := planFunc(func(_ context.Context, _ []core.Actor, _, _, _ string) ([]core.Candidate, error) {
		calls++
		if calls >= 2 {
			return nil, stderrors.New("llm down")
		}
		return []core.Candidate{{Proposer: "solver", Content: "the plan"}}, nil
	})

	store := archive.NewMemoryStore()
	collector := rttesting.NewEventCollector()
	sess, err := New(newTestController(t, false, pipeline.WithMaxTurns(5), pipeline.WithDecisionMaker(failing)),
		WithArchive(store),
		WithEventEmitter(collector),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := sess.Run(context.Background())
	if err == nil {
		t.Fatal("Run should surface the stage error")
	}
	if summary != nil {
		t.Errorf("failed run returned summary %+v", summary)
	}

	records, _ := store.List(context.Background(), archive.Filter{})
	if len(records) != 1 {
		t.Errorf("archived records = %d, want only the completed round", len(records))
	}

	finished := collector.ByType(core.EventSessionFinished)
	if len(finished) != 1 {
		t.Fatalf("session.finished events = %d, want 1", len(finished))
	}
	if msg, _ := finished[0].Payload["error"].(string); !strings.Contains(msg, "llm down") {
		t.Errorf("finished payload = %v, want the error", finished[0].Payload)
	}
}

func TestRunSeedsAdviceFromMemory(t *testing.T) {
	mem := newTestMemory(t)
	past := memory.Experience{
		Task:   "deploy the service",
		Plan:   "use the blue cluster",
		Advice: "watch the quota",
		Scores: []float64{9},
	}
	if err := mem.Remember(context.Background(), past); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	var firstAdvice string
	capture := planFunc(func(_ context.Context, _ []core.Actor, _, _, advice string) ([]core.Candidate, error) {
		if firstAdvice == "" {
			firstAdvice = advice
		}
		return []core.Candidate{{Proposer: "solver", Content: "the plan"}}, nil
	})

	sess, err := New(newTestController(t, true, pipeline.WithDecisionMaker(capture)),
		WithMemory(mem),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(firstAdvice, "Advice from similar past tasks:") {
		t.Errorf("first round advice = %q, want recalled experience", firstAdvice)
	}
	if !strings.Contains(firstAdvice, "use the blue cluster") || !strings.Contains(firstAdvice, "watch the quota") {
		t.Errorf("first round advice = %q, want the past plan and advice", firstAdvice)
	}
}

func TestRunRemembersAcceptedRound(t *testing.T) {
	mem := newTestMemory(t)
	sess, err := New(newTestController(t, []float64{9, 9}),
		WithMemory(mem),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recalled, err := mem.Recall(context.Background(), "solve the task", 3)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(recalled) != 1 {
		t.Fatalf("recalled = %d experiences, want the accepted round", len(recalled))
	}
	got := recalled[0]
	if got.Task != "solve the task" || got.Plan != "the plan" {
		t.Errorf("recalled %+v, want the round's task and plan", got.Experience)
	}
	if len(got.Scores) != 2 || got.Scores[0] != 9 {
		t.Errorf("recalled scores = %v, want [9 9]", got.Scores)
	}
}

func TestRunRejectedRoundIsNotRemembered(t *testing.T) {
	mem := newTestMemory(t)
	sess, err := New(newTestController(t, false, pipeline.WithMaxTurns(2)),
		WithMemory(mem),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	recalled, err := mem.Recall(context.Background(), "solve the task", 3)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(recalled) != 0 {
		t.Errorf("recalled = %d experiences after rejected rounds, want none", len(recalled))
	}
}

func TestRunToleratesArchiveFailure(t *testing.T) {
	sess, err := New(newTestController(t, true),
		WithArchive(&failingArchive{err: stderrors.New("disk full")}),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should survive archive failures: %v", err)
	}
	if !summary.Success {
		t.Error("summary should still report the accepted round")
	}
}

func TestRunToleratesMemoryFailure(t *testing.T) {
	mem, err := memory.NewExperienceMemory(memory.NewInMemoryStore(), &fixedEmbedder{err: stderrors.New("embedder offline")})
	if err != nil {
		t.Fatalf("NewExperienceMemory: %v", err)
	}
	sess, err := New(newTestController(t, true),
		WithMemory(mem),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should survive memory failures: %v", err)
	}
	if !summary.Success || summary.Turns != 1 {
		t.Errorf("summary success=%v turns=%d, want an accept on turn 1", summary.Success, summary.Turns)
	}
}

func TestNewRequiresController(t *testing.T) {
	_, err := New(nil)
	if !rterrors.IsCode(err, rterrors.CodeConfiguration) {
		t.Errorf("New(nil) returned %v, want a configuration error", err)
	}
}

type recordingCloser struct {
	closed bool
	err    error
}

func (c *recordingCloser) Close() error {
	c.closed = true
	return c.err
}

func TestCloseReleasesResources(t *testing.T) {
	good := &recordingCloser{}
	bad := &recordingCloser{err: stderrors.New("already closed")}
	sess, err := New(newTestController(t, true), WithCloser(good), WithCloser(bad))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sess.Close(); err == nil || !strings.Contains(err.Error(), "already closed") {
		t.Errorf("Close returned %v, want the closer error", err)
	}
	if !good.closed || !bad.closed {
		t.Error("Close should reach every attached resource")
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close returned %v, want nil", err)
	}
}

func TestScoresFrom(t *testing.T) {
	cases := []struct {
		name  string
		score any
		want  int
	}{
		{"float series", []float64{9, 8.5}, 2},
		{"int series", []int{9, 8}, 2},
		{"single float", 9.5, 1},
		{"single int", 9, 1},
		{"boolean", true, 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoresFrom(tc.score)
			if len(got) != tc.want {
				t.Errorf("scoresFrom(%v) = %v, want %d values", tc.score, got, tc.want)
			}
		})
	}
}
