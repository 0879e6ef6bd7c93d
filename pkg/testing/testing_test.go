// Copyright 2026 © The Roundtable Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/jllopis/roundtable/pkg/core"
	"github.com/jllopis/roundtable/pkg/llm"
)

func TestScenarioProviderScriptedResponses(t *testing.T) {
	provider := NewScenarioProvider().
		AddResponse("first").
		AddResponse("second")

	for i, want := range []string{"first", "second"} {
		resp, err := provider.Chat(context.Background(), llm.ChatRequest{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if resp.Content != want {
			t.Errorf("call %d: expected %q, got %q", i, want, resp.Content)
		}
	}

	if _, err := provider.Chat(context.Background(), llm.ChatRequest{}); err == nil {
		t.Errorf("expected error once responses are exhausted")
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 captured requests, got %d", provider.CallCount())
	}
}

func TestScenarioProviderErrorResponse(t *testing.T) {
	boom := errors.New("scripted failure")
	provider := NewScenarioProvider().AddErrorResponse(boom)

	_, err := provider.Chat(context.Background(), llm.ChatRequest{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
}

func TestScenarioProviderRequestCapture(t *testing.T) {
	provider := NewScenarioProvider().AddResponse("ok")

	_, err := provider.Chat(context.Background(), llm.ChatRequest{
		Model:    "test-model",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "question"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	last := provider.LastRequest()
	if last == nil {
		t.Fatalf("expected a captured request")
	}
	if last.Model != "test-model" {
		t.Errorf("expected captured model, got %q", last.Model)
	}

	provider.Reset()
	if provider.CallCount() != 0 {
		t.Errorf("expected no requests after reset, got %d", provider.CallCount())
	}
}

func TestScriptedActorReplies(t *testing.T) {
	a := NewScriptedActor("critic", "reply one", "reply two")

	for i, want := range []string{"reply one", "reply two"} {
		got, err := a.Ask(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("ask %d failed: %v", i, err)
		}
		if got != want {
			t.Errorf("ask %d: expected %q, got %q", i, want, got)
		}
	}

	if _, err := a.Ask(context.Background(), "prompt"); err == nil {
		t.Errorf("expected error once replies are exhausted")
	}
	if a.AskCount() != 3 {
		t.Errorf("expected 3 prompts captured, got %d", a.AskCount())
	}
}

func TestStaticActorRepeats(t *testing.T) {
	a := NewStaticActor("evaluator", "same answer")

	for i := 0; i < 3; i++ {
		got, err := a.Ask(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("ask %d failed: %v", i, err)
		}
		if got != "same answer" {
			t.Errorf("ask %d: expected fixed reply, got %q", i, got)
		}
	}
}

func TestScriptedActorRole(t *testing.T) {
	a := NewScriptedActor("solver", "x")
	a.SetRoleDescription("lead problem solver")
	if a.RoleDescription() != "lead problem solver" {
		t.Errorf("unexpected role: %q", a.RoleDescription())
	}
}

func TestScriptedActorContextCanceled(t *testing.T) {
	a := NewStaticActor("solver", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Ask(ctx, "prompt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if a.AskCount() != 0 {
		t.Errorf("canceled ask should not be recorded, got %d", a.AskCount())
	}
}

func TestEventCollector(t *testing.T) {
	collector := NewEventCollector()
	ctx := context.Background()

	collector.Emit(ctx, core.NewEvent(core.EventRoundStarted, "controller", "sess-1", 0, nil))
	collector.Emit(ctx, core.NewEvent(core.EventRoundRejected, "controller", "sess-1", 0, nil))
	collector.Emit(ctx, core.NewEvent(core.EventRoundStarted, "controller", "sess-1", 1, nil))

	if collector.Count() != 3 {
		t.Errorf("expected 3 events, got %d", collector.Count())
	}
	if !collector.HasEvent(core.EventRoundRejected) {
		t.Errorf("expected a rejected event")
	}
	if got := len(collector.ByType(core.EventRoundStarted)); got != 2 {
		t.Errorf("expected 2 round.started events, got %d", got)
	}

	types := collector.EventTypes()
	if types[0] != core.EventRoundStarted || types[1] != core.EventRoundRejected {
		t.Errorf("unexpected event order: %v", types)
	}

	collector.Reset()
	if collector.Count() != 0 {
		t.Errorf("expected no events after reset, got %d", collector.Count())
	}
}
