// Copyright 2026 © The Roundtable Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedActor implements core.Actor for tests. It pops queued replies in
// order and records every prompt it was asked.
type ScriptedActor struct {
	mu      sync.Mutex
	name    string
	role    string
	replies []string
	index   int
	prompts []string
	err     error
	onAsk   func(prompt string) (string, error)
	fixed   bool
}

// NewScriptedActor creates an actor that returns replies in order and fails
// once they run out.
func NewScriptedActor(name string, replies ...string) *ScriptedActor {
	return &ScriptedActor{name: name, replies: replies}
}

// NewStaticActor creates an actor that always returns the same reply.
func NewStaticActor(name, reply string) *ScriptedActor {
	return &ScriptedActor{name: name, replies: []string{reply}, fixed: true}
}

// WithError makes every Ask fail with err.
func (a *ScriptedActor) WithError(err error) *ScriptedActor {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	return a
}

// WithAskFunc sets a custom handler for Ask, bypassing the scripted replies.
func (a *ScriptedActor) WithAskFunc(fn func(prompt string) (string, error)) *ScriptedActor {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAsk = fn
	return a
}

// Name implements core.Actor.
func (a *ScriptedActor) Name() string { return a.name }

// RoleDescription implements core.Actor.
func (a *ScriptedActor) RoleDescription() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.role
}

// SetRoleDescription implements core.Actor.
func (a *ScriptedActor) SetRoleDescription(desc string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.role = desc
}

// Ask implements core.Actor. It honors context cancellation so tests can
// exercise the decision-stage abort path.
func (a *ScriptedActor) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.prompts = append(a.prompts, prompt)

	if a.onAsk != nil {
		return a.onAsk(prompt)
	}
	if a.err != nil {
		return "", a.err
	}
	if a.fixed {
		return a.replies[0], nil
	}
	if a.index >= len(a.replies) {
		return "", fmt.Errorf("actor %s: no more scripted replies (ask %d)", a.name, a.index+1)
	}
	reply := a.replies[a.index]
	a.index++
	return reply, nil
}

// Prompts returns all captured prompts.
func (a *ScriptedActor) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.prompts))
	copy(out, a.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or empty.
func (a *ScriptedActor) LastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return ""
	}
	return a.prompts[len(a.prompts)-1]
}

// AskCount returns the number of Ask calls made.
func (a *ScriptedActor) AskCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.prompts)
}
