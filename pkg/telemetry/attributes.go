// Copyright 2026 © The Roundtable Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration with rich attributes
// for round observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for roundtable telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Session attributes
	AttrSessionID       = "roundtable.session.id"
	AttrSessionTask     = "roundtable.session.task"
	AttrSessionMaxTurns = "roundtable.session.max_turns"

	// Round attributes
	AttrRoundTurn    = "roundtable.round.turn"
	AttrRoundOutcome = "roundtable.round.outcome"

	// Stage attributes
	AttrStageName       = "roundtable.stage.name"
	AttrStageDurationMs = "roundtable.stage.duration_ms"

	// Roster attributes
	AttrRosterSize  = "roundtable.roster.size"
	AttrRosterNames = "roundtable.roster.names"

	// Decision attributes
	AttrDecisionProtocol   = "roundtable.decision.protocol"
	AttrDecisionCandidates = "roundtable.decision.candidates"

	// Evaluation attributes
	AttrEvalThreshold = "roundtable.evaluation.threshold"
	AttrEvalScores    = "roundtable.evaluation.scores"
	AttrEvalAccepted  = "roundtable.evaluation.accepted"
)

// SessionAttributes returns common attributes for session and step spans.
func SessionAttributes(sessionID, task string, maxTurns int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	if task != "" {
		// Truncate long task descriptions
		if len(task) > 200 {
			task = task[:200] + "..."
		}
		attrs = append(attrs, attribute.String(AttrSessionTask, task))
	}
	if maxTurns > 0 {
		attrs = append(attrs, attribute.Int(AttrSessionMaxTurns, maxTurns))
	}
	return attrs
}

// RoundAttributes returns attributes for a single controller round.
func RoundAttributes(turn int, outcome string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrRoundTurn, turn),
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String(AttrRoundOutcome, outcome))
	}
	return attrs
}

// StageAttributes returns attributes for a pipeline stage span.
func StageAttributes(stage string, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStageName, stage),
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrStageDurationMs, durationMs))
	}
	return attrs
}

// RosterAttributes describes the participants entering a round.
func RosterAttributes(names []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrRosterSize, len(names)),
	}
	if len(names) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrRosterNames, names))
	}
	return attrs
}

// DecisionAttributes describes the plan produced by the decision stage.
func DecisionAttributes(protocol string, candidates int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrDecisionCandidates, candidates),
	}
	if protocol != "" {
		attrs = append(attrs, attribute.String(AttrDecisionProtocol, protocol))
	}
	return attrs
}

// EvaluationAttributes returns attributes for the evaluation verdict.
func EvaluationAttributes(threshold float64, scores []float64, accepted bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Float64(AttrEvalThreshold, threshold),
		attribute.Bool(AttrEvalAccepted, accepted),
	}
	if len(scores) > 0 {
		attrs = append(attrs, attribute.Float64Slice(AttrEvalScores, scores))
	}
	return attrs
}
