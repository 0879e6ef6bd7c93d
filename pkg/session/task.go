package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/roundtable/pkg/actor"
	"github.com/jllopis/roundtable/pkg/assign"
	"github.com/jllopis/roundtable/pkg/core"
	"github.com/jllopis/roundtable/pkg/decision"
	rterrors "github.com/jllopis/roundtable/pkg/errors"
	"github.com/jllopis/roundtable/pkg/evaluation"
	"github.com/jllopis/roundtable/pkg/execution"
	"github.com/jllopis/roundtable/pkg/llm"
	"github.com/jllopis/roundtable/pkg/mcp"
	"github.com/jllopis/roundtable/pkg/pipeline"
)

// BundleFile is the config file a task bundle directory must contain.
const BundleFile = "config.yaml"

// Default strategy selections for bundles that omit them.
const (
	DefaultAssign     = "describer"
	DefaultDecision   = "vertical"
	DefaultExecution  = "none"
	DefaultEvaluation = "scored"
)

// ActorSpec declares one LLM-backed participant. Model and temperature
// override the run defaults for this actor only.
type ActorSpec struct {
	Name        string  `yaml:"name"`
	Role        string  `yaml:"role"`
	Model       string  `yaml:"model"`
	Persona     string  `yaml:"persona"`
	Temperature float64 `yaml:"temperature"`
}

// Actors declares the roster. Manager is optional; naming one enables the
// manager-guided decision protocol. Executor is optional and backs the actor
// and tool execution variants; when absent the solver carries out its own
// plans.
type Actors struct {
	Assigner  ActorSpec   `yaml:"assigner"`
	Solver    ActorSpec   `yaml:"solver"`
	Critics   []ActorSpec `yaml:"critics"`
	Manager   ActorSpec   `yaml:"manager"`
	Evaluator ActorSpec   `yaml:"evaluator"`
	Executor  ActorSpec   `yaml:"executor"`
}

// Strategies selects the variant for each stage.
type Strategies struct {
	Assign     string `yaml:"assign"`
	Decision   string `yaml:"decision"`
	Execution  string `yaml:"execution"`
	Evaluation string `yaml:"evaluation"`
}

// Prompts carries the optional stage instruction overrides.
type Prompts struct {
	Executor  string `yaml:"executor"`
	Evaluator string `yaml:"evaluator"`
}

// Bundle is a parsed task bundle: one task plus everything needed to run it.
// Roles feeds the static assign variant; MCPServers are dialed whenever
// declared and their tools land in the executor toolbox.
type Bundle struct {
	Task            string             `yaml:"task"`
	MaxTurns        int                `yaml:"max_turns"`
	AcceptThreshold float64            `yaml:"accept_threshold"`
	ParallelCritics bool               `yaml:"parallel_critics"`
	Actors          Actors             `yaml:"actors"`
	Strategies      Strategies         `yaml:"strategies"`
	Roles           map[string]string  `yaml:"roles"`
	Prompts         Prompts            `yaml:"prompts"`
	MCPServers      []mcp.ServerConfig `yaml:"mcp_servers"`

	// Dir is the bundle directory, set by LoadTask.
	Dir string `yaml:"-"`
}

// LoadTask reads and validates the bundle in dir. Missing strategy
// selections fall back to describer, vertical, none, and scored.
func LoadTask(dir string) (*Bundle, error) {
	path := filepath.Join(dir, BundleFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("read task bundle %s", path), err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(raw, &bundle); err != nil {
		return nil, rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("parse task bundle %s", path), err)
	}
	bundle.Dir = dir
	bundle.applyDefaults()

	if err := bundle.validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (b *Bundle) applyDefaults() {
	if b.Strategies.Assign == "" {
		b.Strategies.Assign = DefaultAssign
	}
	if b.Strategies.Decision == "" {
		b.Strategies.Decision = DefaultDecision
	}
	if b.Strategies.Execution == "" {
		b.Strategies.Execution = DefaultExecution
	}
	if b.Strategies.Evaluation == "" {
		b.Strategies.Evaluation = DefaultEvaluation
	}
}

func (b *Bundle) validate() error {
	if strings.TrimSpace(b.Task) == "" {
		return rterrors.New(rterrors.CodeConfiguration, "task bundle needs a task description", nil)
	}
	if b.MaxTurns < 0 {
		return rterrors.New(rterrors.CodeConfiguration,
			fmt.Sprintf("max_turns must not be negative, got %d", b.MaxTurns), nil)
	}
	required := []struct {
		role string
		spec ActorSpec
	}{
		{"assigner", b.Actors.Assigner},
		{"solver", b.Actors.Solver},
		{"evaluator", b.Actors.Evaluator},
	}
	for _, req := range required {
		if strings.TrimSpace(req.spec.Name) == "" {
			return rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("task bundle needs a named %s actor", req.role), nil)
		}
	}
	for i, critic := range b.Actors.Critics {
		if strings.TrimSpace(critic.Name) == "" {
			return rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("critic %d needs a name", i+1), nil)
		}
	}
	for i, server := range b.MCPServers {
		if strings.TrimSpace(server.Name) == "" {
			return rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("mcp server %d needs a name", i+1), nil)
		}
	}
	if b.Strategies.Execution == "tool" && len(b.MCPServers) == 0 {
		return rterrors.New(rterrors.CodeConfiguration,
			"tool execution needs at least one entry under mcp_servers", nil)
	}
	return nil
}

// ResolveStrategies checks the bundle's variant selections against the
// registries without building actors or dialing tool servers.
func (b *Bundle) ResolveStrategies() error {
	checks := []struct {
		stage   string
		variant string
		known   []string
	}{
		{"assign", b.Strategies.Assign, assign.Variants()},
		{"decision", b.Strategies.Decision, decision.Variants()},
		{"execution", b.Strategies.Execution, execution.Variants()},
		{"evaluation", b.Strategies.Evaluation, evaluation.Variants()},
	}
	for _, check := range checks {
		if !containsVariant(check.known, check.variant) {
			return rterrors.New(rterrors.CodeConfiguration,
				fmt.Sprintf("unknown %s variant %q (known: %s)",
					check.stage, check.variant, strings.Join(check.known, ", ")), nil)
		}
	}
	return nil
}

func containsVariant(known []string, variant string) bool {
	for _, name := range known {
		if name == variant {
			return true
		}
	}
	return false
}

// BuildOption adjusts how Build assembles the session.
type BuildOption func(*buildConfig)

type buildConfig struct {
	defaultModel   string
	controllerOpts []pipeline.Option
	sessionOpts    []Option
	mcpOpts        []mcp.ClientOption
}

// WithDefaultModel sets the model for actors whose spec names none.
func WithDefaultModel(model string) BuildOption {
	return func(bc *buildConfig) { bc.defaultModel = model }
}

// WithControllerOptions forwards options to the controller Build creates.
func WithControllerOptions(opts ...pipeline.Option) BuildOption {
	return func(bc *buildConfig) { bc.controllerOpts = append(bc.controllerOpts, opts...) }
}

// WithSessionOptions forwards options to the session Build returns.
func WithSessionOptions(opts ...Option) BuildOption {
	return func(bc *buildConfig) { bc.sessionOpts = append(bc.sessionOpts, opts...) }
}

// WithMCPClientOptions forwards options to the MCP clients behind the
// executor toolbox.
func WithMCPClientOptions(opts ...mcp.ClientOption) BuildOption {
	return func(bc *buildConfig) { bc.mcpOpts = append(bc.mcpOpts, opts...) }
}

// Build assembles a ready session from a bundle: actors over the provider,
// the stage strategies through their registries, the controller, and the
// session around it. Unknown variants and roster gaps surface here, before
// any round runs. The session owns the MCP connections Build opens; callers
// release them with Close.
func Build(ctx context.Context, bundle *Bundle, provider llm.Provider, opts ...BuildOption) (*Session, error) {
	if bundle == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "task bundle is required", nil)
	}
	if provider == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "task bundles need an llm provider", nil)
	}

	var bc buildConfig
	for _, opt := range opts {
		opt(&bc)
	}

	roster, err := buildRoster(bundle, provider, bc.defaultModel)
	if err != nil {
		return nil, err
	}

	assigner, err := assign.New(bundle.Strategies.Assign, assign.Config{Roles: bundle.Roles})
	if err != nil {
		return nil, err
	}
	decider, err := decision.New(bundle.Strategies.Decision, decision.Config{ParallelCritics: bundle.ParallelCritics})
	if err != nil {
		return nil, err
	}
	evaluator, err := evaluation.New(bundle.Strategies.Evaluation, evaluation.Config{Prompt: bundle.Prompts.Evaluator})
	if err != nil {
		return nil, err
	}

	execCfg := execution.Config{Prompt: bundle.Prompts.Executor}
	execCfg.Actor = roster.Solver
	if bundle.Actors.Executor.Name != "" {
		if execCfg.Actor, err = buildActor(bundle.Actors.Executor, provider, bc.defaultModel); err != nil {
			return nil, err
		}
	}

	var toolset *mcp.Toolset
	if len(bundle.MCPServers) > 0 {
		toolset, err = mcp.NewToolset(ctx, bundle.MCPServers, bc.mcpOpts...)
		if err != nil {
			return nil, err
		}
		execCfg.Tools = toolset.Tools()
	}
	fail := func(err error) (*Session, error) {
		if toolset != nil {
			toolset.Close()
		}
		return nil, err
	}

	executor, err := execution.New(bundle.Strategies.Execution, execCfg)
	if err != nil {
		return fail(err)
	}

	controllerOpts := []pipeline.Option{
		pipeline.WithAssigner(assigner),
		pipeline.WithDecisionMaker(decider),
		pipeline.WithExecutor(executor),
		pipeline.WithEvaluator(evaluator),
	}
	if bundle.MaxTurns > 0 {
		controllerOpts = append(controllerOpts, pipeline.WithMaxTurns(bundle.MaxTurns))
	}
	if bundle.AcceptThreshold > 0 {
		controllerOpts = append(controllerOpts, pipeline.WithAcceptThreshold(bundle.AcceptThreshold))
	}
	controllerOpts = append(controllerOpts, bc.controllerOpts...)

	controller, err := pipeline.New(roster, controllerOpts...)
	if err != nil {
		return fail(err)
	}
	if err := controller.SetTaskDescription(bundle.Task); err != nil {
		return fail(err)
	}

	sessionOpts := bc.sessionOpts
	if toolset != nil {
		sessionOpts = append(sessionOpts, WithCloser(toolset))
	}
	sess, err := New(controller, sessionOpts...)
	if err != nil {
		return fail(err)
	}
	return sess, nil
}

func buildRoster(bundle *Bundle, provider llm.Provider, defaultModel string) (*core.Roster, error) {
	roster := &core.Roster{}
	var err error
	if roster.Assigner, err = buildActor(bundle.Actors.Assigner, provider, defaultModel); err != nil {
		return nil, err
	}
	if roster.Solver, err = buildActor(bundle.Actors.Solver, provider, defaultModel); err != nil {
		return nil, err
	}
	if roster.Evaluator, err = buildActor(bundle.Actors.Evaluator, provider, defaultModel); err != nil {
		return nil, err
	}
	for _, spec := range bundle.Actors.Critics {
		critic, err := buildActor(spec, provider, defaultModel)
		if err != nil {
			return nil, err
		}
		roster.Critics = append(roster.Critics, critic)
	}
	if bundle.Actors.Manager.Name != "" {
		if roster.Manager, err = buildActor(bundle.Actors.Manager, provider, defaultModel); err != nil {
			return nil, err
		}
	}
	return roster, nil
}

func buildActor(spec ActorSpec, provider llm.Provider, defaultModel string) (core.Actor, error) {
	model := spec.Model
	if model == "" {
		model = defaultModel
	}
	opts := []actor.Option{actor.WithProvider(provider)}
	if model != "" {
		opts = append(opts, actor.WithModel(model))
	}
	if spec.Persona != "" {
		opts = append(opts, actor.WithPersona(spec.Persona))
	}
	if spec.Role != "" {
		opts = append(opts, actor.WithRoleDescription(spec.Role))
	}
	if spec.Temperature > 0 {
		opts = append(opts, actor.WithTemperature(spec.Temperature))
	}
	a, err := actor.New(spec.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("actor %q: %w", spec.Name, err)
	}
	return a, nil
}
