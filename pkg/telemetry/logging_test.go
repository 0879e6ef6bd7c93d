// Copyright 2026 © The Roundtable Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestConfigureSlogJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")

	logger.Info("round.started", slog.Int("turn", 1))

	out := buf.String()
	if !strings.Contains(out, `"msg":"round.started"`) {
		t.Errorf("expected json message, got %s", out)
	}
	if !strings.Contains(out, `"turn":1`) {
		t.Errorf("expected turn attribute, got %s", out)
	}
}

func TestConfigureSlogLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "text")

	logger.Info("round.started")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("round.slow")
	if !strings.Contains(buf.String(), "round.slow") {
		t.Errorf("warn record missing, got %s", buf.String())
	}
}

func TestSlogTraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	if err != nil {
		t.Fatalf("bad trace id: %v", err)
	}
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	if err != nil {
		t.Fatalf("bad span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "stage.completed")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"0102030405060708090a0b0c0d0e0f10"`) {
		t.Errorf("expected trace_id attribute, got %s", out)
	}
	if !strings.Contains(out, `"span_id":"0102030405060708"`) {
		t.Errorf("expected span_id attribute, got %s", out)
	}
}

func TestSlogNoTraceWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")

	logger.InfoContext(context.Background(), "stage.completed")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("trace_id should be absent without an active span, got %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
