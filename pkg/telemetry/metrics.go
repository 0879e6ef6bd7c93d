// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/roundtable/pkg/errors"
)

// Metrics tracks round outcomes, stage latencies and session activity for
// production monitoring. A nil *Metrics records nothing, so components can
// run with telemetry left unconfigured.
type Metrics struct {
	// roundCounter tracks completed rounds by outcome
	roundCounter metric.Int64Counter

	// stageDuration tracks wall-clock stage latency in milliseconds
	stageDuration metric.Float64Histogram

	// activeSessions tracks sessions currently driving a controller
	activeSessions metric.Int64UpDownCounter

	// errorCounter tracks stage errors by code
	errorCounter metric.Int64Counter

	mu sync.RWMutex
}

// NewMetrics creates the roundtable instrument set with OTEL meters.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("roundtable/pipeline")

	roundCounter, err := meter.Int64Counter(
		"roundtable.rounds.total",
		metric.WithDescription("Rounds by outcome (accepted, rejected or failed)"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"roundtable.stage.duration",
		metric.WithDescription("Stage latency by stage name"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	activeSessions, err := meter.Int64UpDownCounter(
		"roundtable.sessions.active",
		metric.WithDescription("Sessions currently running rounds"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"roundtable.errors.total",
		metric.WithDescription("Stage errors by code and stage"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		roundCounter:   roundCounter,
		stageDuration:  stageDuration,
		activeSessions: activeSessions,
		errorCounter:   errorCounter,
	}, nil
}

// RecordRound increments the round counter. Outcome is one of "accepted",
// "rejected" or "failed".
func (m *Metrics) RecordRound(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	m.roundCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrRoundOutcome, outcome),
		),
	)
}

// RecordStageDuration records how long a pipeline stage took.
func (m *Metrics) RecordStageDuration(ctx context.Context, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	m.stageDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String(AttrStageName, stage),
		),
	)
}

// AddActiveSessions moves the active session gauge by delta. Sessions add 1
// when they start and -1 when they finish.
func (m *Metrics) AddActiveSessions(ctx context.Context, delta int64) {
	if m == nil {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	m.activeSessions.Add(ctx, delta)
}

// RecordError increments the error counter for a failed stage.
func (m *Metrics) RecordError(ctx context.Context, err error, stage string) {
	if m == nil || err == nil {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", string(errors.CodeOf(err))),
			attribute.String(AttrStageName, stage),
		),
	)
}
