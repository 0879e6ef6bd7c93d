// Package actor implements the LLM-backed participants of a roundtable.
package actor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jllopis/roundtable/pkg/llm"
)

var ErrMissingProvider = errors.New("actor provider is required")

// Actor is an LLM-backed participant. Its role description is assigned at
// the start of each round and prepended to every prompt it answers.
type Actor struct {
	mu              sync.RWMutex
	name            string
	persona         string
	roleDescription string
	provider        llm.Provider
	model           string
	temperature     float64
}

// Option configures an Actor instance.
type Option func(*Actor) error

// New creates a new Actor with a required name and options.
func New(name string, opts ...Option) (*Actor, error) {
	a := &Actor{name: name}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.name == "" {
		return nil, errors.New("actor name is required")
	}
	if a.provider == nil {
		return nil, ErrMissingProvider
	}
	return a, nil
}

// WithProvider sets the LLM backend the actor speaks through.
func WithProvider(provider llm.Provider) Option {
	return func(a *Actor) error {
		a.provider = provider
		return nil
	}
}

// WithModel sets the model name passed to the provider.
func WithModel(model string) Option {
	return func(a *Actor) error {
		a.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(a *Actor) error {
		a.temperature = temperature
		return nil
	}
}

// WithPersona sets a fixed persona prefix that survives role reassignment.
func WithPersona(persona string) Option {
	return func(a *Actor) error {
		a.persona = persona
		return nil
	}
}

// WithRoleDescription sets the initial role description.
func WithRoleDescription(desc string) Option {
	return func(a *Actor) error {
		a.roleDescription = desc
		return nil
	}
}

// Name returns the actor identifier.
func (a *Actor) Name() string { return a.name }

// RoleDescription returns the currently assigned role description.
func (a *Actor) RoleDescription() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roleDescription
}

// SetRoleDescription replaces the assigned role description.
func (a *Actor) SetRoleDescription(desc string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roleDescription = desc
}

// Ask sends prompt to the actor and returns its answer. The persona and
// the current role description form the system message.
func (a *Actor) Ask(ctx context.Context, prompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if system := a.systemPrompt(); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("actor %q chat: %w", a.name, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func (a *Actor) systemPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	parts := make([]string, 0, 2)
	if a.persona != "" {
		parts = append(parts, a.persona)
	}
	if a.roleDescription != "" {
		parts = append(parts, a.roleDescription)
	}
	return strings.Join(parts, "\n\n")
}
