package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted by the round controller.
type EventType string

const (
	EventRoundStarted    EventType = "round.started"
	EventRolesAssigned   EventType = "round.roles_assigned"
	EventPlanProposed    EventType = "round.plan_proposed"
	EventPlanExecuted    EventType = "round.plan_executed"
	EventResultEvaluated EventType = "round.result_evaluated"
	EventRoundAccepted   EventType = "round.accepted"
	EventRoundRejected   EventType = "round.rejected"
	EventRoundFailed     EventType = "round.failed"
	EventSessionFinished EventType = "session.finished"
)

// Event captures one per-stage notification. A round emits events in stage
// order; emitters observe, they never influence the round.
type Event struct {
	Type      EventType
	Source    string
	SessionID string
	Turn      int
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events. Implementations must not block for
// long and must never fail the round.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// EmitterFunc adapts a function to the EventEmitter interface.
type EmitterFunc func(ctx context.Context, event Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, source, sessionID string, turn int, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		SessionID: sessionID,
		Turn:      turn,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
