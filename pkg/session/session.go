// Package session drives a round controller from task to summary. A Session
// owns run-scoped concerns the controller stays ignorant of: archiving
// completed rounds, recalling and storing cross-session experience, and the
// closing session.finished event.
package session

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jllopis/roundtable/pkg/archive"
	"github.com/jllopis/roundtable/pkg/core"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/memory"
	"github.com/jllopis/roundtable/pkg/pipeline"
	"github.com/jllopis/roundtable/pkg/telemetry"
)

// DefaultRecallLimit bounds how many past experiences seed the first round.
const DefaultRecallLimit = 3

// Summary condenses a finished session.
type Summary struct {
	SessionID   string
	Task        string
	Turns       int
	Success     bool
	FinalResult any
	FinalPlan   string
	Elapsed     time.Duration
}

// Session runs a controller to completion. Archive and memory are optional;
// when absent the session simply loops rounds.
type Session struct {
	controller  *pipeline.Controller
	archive     archive.Store
	memory      *memory.ExperienceMemory
	recallLimit int
	emitter     core.EventEmitter
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	id          string
	closers     []io.Closer
}

// Option configures a Session.
type Option func(*Session)

// WithArchive persists every completed round to the store.
func WithArchive(store archive.Store) Option {
	return func(s *Session) { s.archive = store }
}

// WithMemory enables experience recall before the first round and storage
// after an accepted one.
func WithMemory(mem *memory.ExperienceMemory) Option {
	return func(s *Session) { s.memory = mem }
}

// WithRecallLimit caps the experiences recalled at session start. Values
// below one keep the default.
func WithRecallLimit(limit int) Option {
	return func(s *Session) {
		if limit > 0 {
			s.recallLimit = limit
		}
	}
}

// WithEventEmitter sets the observer for session-level events.
func WithEventEmitter(e core.EventEmitter) Option {
	return func(s *Session) {
		if e == nil {
			e = core.NoopEventEmitter{}
		}
		s.emitter = e
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l == nil {
			l = slog.Default()
		}
		s.logger = l
	}
}

// WithMetrics attaches the telemetry instruments. A nil *Metrics is valid and
// records nothing.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithCloser hands the session a resource to release on Close, such as the
// MCP toolset behind a tool executor.
func WithCloser(c io.Closer) Option {
	return func(s *Session) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// New wraps a controller in a session. The session identity comes from the
// controller so rounds and session events carry the same id.
func New(controller *pipeline.Controller, opts ...Option) (*Session, error) {
	if controller == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "session requires a controller", nil)
	}
	s := &Session{
		controller:  controller,
		recallLimit: DefaultRecallLimit,
		emitter:     core.NoopEventEmitter{},
		logger:      slog.Default(),
		id:          controller.SessionID(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Close releases the resources handed to the session, joining any errors.
// Running a session does not close it; callers close when done.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return stderrors.Join(errs...)
}

// Run loops Step until the controller is done, then reports a Summary. A
// stage error is fatal: the session stops, emits session.finished with the
// error, and returns it. Rejected rounds are normal control flow. Archive and
// memory failures are logged and never stop the session.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	ctx = core.WithSessionID(ctx, s.id)
	task := s.controller.TaskDescription()

	s.metrics.AddActiveSessions(ctx, 1)
	defer s.metrics.AddActiveSessions(ctx, -1)

	s.logger.InfoContext(ctx, "session.started",
		slog.String("session_id", s.id),
		slog.String("task", task),
	)

	s.seedFromMemory(ctx, task)

	var last *pipeline.Round
	for !s.controller.IsDone() {
		round, err := s.controller.Step(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "session.aborted",
				slog.String("session_id", s.id),
				slog.Int("turns", s.controller.TurnCount()),
				slog.String("error", err.Error()),
			)
			s.finish(ctx, map[string]any{
				"success": false,
				"turns":   s.controller.TurnCount(),
				"error":   err.Error(),
			})
			return nil, err
		}
		last = round
		s.saveRound(ctx, round)
		if round.Success {
			s.remember(ctx, task, round)
		}
	}

	summary := &Summary{
		SessionID: s.id,
		Task:      task,
		Turns:     s.controller.TurnCount(),
		Success:   s.controller.Success(),
		Elapsed:   time.Since(start),
	}
	if last != nil {
		summary.FinalResult = last.Result
		summary.FinalPlan = last.Plan
	}

	s.logger.InfoContext(ctx, "session.finished",
		slog.String("session_id", s.id),
		slog.Int("turns", summary.Turns),
		slog.Bool("success", summary.Success),
	)
	s.finish(ctx, map[string]any{
		"success": summary.Success,
		"turns":   summary.Turns,
	})
	return summary, nil
}

// seedFromMemory recalls similar past tasks and seeds the first round's
// advice with them.
func (s *Session) seedFromMemory(ctx context.Context, task string) {
	if s.memory == nil {
		return
	}
	recalled, err := s.memory.Recall(ctx, task, s.recallLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "session.recall_failed", slog.String("error", err.Error()))
		return
	}
	if len(recalled) == 0 {
		return
	}
	if err := s.controller.SeedAdvice(adviceFromExperience(recalled)); err != nil {
		s.logger.WarnContext(ctx, "session.seed_advice_failed", slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "session.advice_seeded", slog.Int("experiences", len(recalled)))
}

func (s *Session) saveRound(ctx context.Context, round *pipeline.Round) {
	if s.archive == nil {
		return
	}
	record := archive.Record{
		SessionID: s.id,
		Turn:      round.Turn,
		State:     string(round.State),
		Plan:      round.Plan,
		Result:    round.Result,
		Score:     round.Score,
		Advice:    round.Advice,
	}
	if err := s.archive.Save(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "session.archive_failed",
			slog.Int("turn", round.Turn),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Session) remember(ctx context.Context, task string, round *pipeline.Round) {
	if s.memory == nil {
		return
	}
	exp := memory.Experience{
		Task:   task,
		Plan:   round.Plan,
		Advice: round.Advice,
		Scores: scoresFrom(round.Score),
	}
	if err := s.memory.Remember(ctx, exp); err != nil {
		s.logger.WarnContext(ctx, "session.remember_failed", slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "session.experience_stored", slog.Int("turn", round.Turn))
}

func (s *Session) finish(ctx context.Context, payload map[string]any) {
	s.emitter.Emit(ctx, core.NewEvent(core.EventSessionFinished, "session", s.id, s.controller.TurnCount(), payload))
}

// adviceFromExperience renders recalled experiences as advice for the first
// round.
func adviceFromExperience(recalled []memory.Recalled) string {
	var b strings.Builder
	b.WriteString("Advice from similar past tasks:\n")
	for _, r := range recalled {
		b.WriteString("- Task: ")
		b.WriteString(r.Task)
		b.WriteString("\n  Plan: ")
		b.WriteString(r.Plan)
		if r.Advice != "" {
			b.WriteString("\n  Advice: ")
			b.WriteString(r.Advice)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// scoresFrom reduces an opaque round score to the numeric series experience
// memory stores. Boolean and unrecognized verdicts carry no series.
func scoresFrom(score any) []float64 {
	switch v := score.(type) {
	case []float64:
		return v
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out
	case float64:
		return []float64{v}
	case int:
		return []float64{float64(v)}
	default:
		return nil
	}
}
