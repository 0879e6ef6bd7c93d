package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jllopis/roundtable/pkg/config"
	"github.com/jllopis/roundtable/pkg/session"
)

type validateResult struct {
	Dir             string            `json:"dir"`
	Task            string            `json:"task"`
	MaxTurns        int               `json:"max_turns"`
	AcceptThreshold float64           `json:"accept_threshold"`
	ParallelCritics bool              `json:"parallel_critics"`
	Strategies      map[string]string `json:"strategies"`
	Actors          []validateActor   `json:"actors"`
	MCPServers      []string          `json:"mcp_servers,omitempty"`
}

type validateActor struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// runValidate loads a bundle and resolves its strategy selections without
// building actors or dialing anything.
func runValidate(flags globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	if cmd.NArg() != 1 {
		fatal(errors.New("usage: roundtable validate <task>"))
	}

	bundle, err := session.LoadTask(resolveTaskDir(cfg, cmd.Arg(0)))
	if err != nil {
		fatal(err)
	}
	applySessionDefaults(bundle, cfg.Session)
	if err := bundle.ResolveStrategies(); err != nil {
		fatal(err)
	}

	result := validateResult{
		Dir:             bundle.Dir,
		Task:            bundle.Task,
		MaxTurns:        bundle.MaxTurns,
		AcceptThreshold: bundle.AcceptThreshold,
		ParallelCritics: bundle.ParallelCritics,
		Strategies: map[string]string{
			"assign":     bundle.Strategies.Assign,
			"decision":   bundle.Strategies.Decision,
			"execution":  bundle.Strategies.Execution,
			"evaluation": bundle.Strategies.Evaluation,
		},
		Actors: collectActors(bundle, cfg.LLM.Model),
	}
	for _, server := range bundle.MCPServers {
		result.MCPServers = append(result.MCPServers, describeServer(server.Name, server.Command, server.URL))
	}

	if flags.JSON {
		printJSON(result)
		return
	}

	fmt.Printf("bundle %s is valid\n\n", bundle.Dir)
	fmt.Printf("task: %s\n", truncateMessage(bundle.Task, 100))
	fmt.Printf("budget: %d turn(s), threshold %v\n\n", bundle.MaxTurns, bundle.AcceptThreshold)

	writer := newTabWriter()
	writeRow(writer, "STAGE", "VARIANT")
	writeRow(writer, "assign", bundle.Strategies.Assign)
	writeRow(writer, "decision", bundle.Strategies.Decision)
	writeRow(writer, "execution", bundle.Strategies.Execution)
	writeRow(writer, "evaluation", bundle.Strategies.Evaluation)
	_ = writer.Flush()

	fmt.Println()
	writer = newTabWriter()
	writeRow(writer, "ROLE", "NAME", "MODEL")
	for _, a := range result.Actors {
		writeRow(writer, a.Role, a.Name, a.Model)
	}
	_ = writer.Flush()

	if len(result.MCPServers) > 0 {
		fmt.Println()
		writer = newTabWriter()
		writeRow(writer, "MCP SERVER", "TRANSPORT")
		for _, server := range bundle.MCPServers {
			writeRow(writer, server.Name, describeServer("", server.Command, server.URL))
		}
		_ = writer.Flush()
	}
}

func collectActors(bundle *session.Bundle, defaultModel string) []validateActor {
	model := func(spec session.ActorSpec) string {
		if spec.Model != "" {
			return spec.Model
		}
		return defaultModel
	}

	actors := []validateActor{
		{Role: "assigner", Name: bundle.Actors.Assigner.Name, Model: model(bundle.Actors.Assigner)},
		{Role: "solver", Name: bundle.Actors.Solver.Name, Model: model(bundle.Actors.Solver)},
	}
	for _, critic := range bundle.Actors.Critics {
		actors = append(actors, validateActor{Role: "critic", Name: critic.Name, Model: model(critic)})
	}
	if bundle.Actors.Manager.Name != "" {
		actors = append(actors, validateActor{Role: "manager", Name: bundle.Actors.Manager.Name, Model: model(bundle.Actors.Manager)})
	}
	actors = append(actors, validateActor{Role: "evaluator", Name: bundle.Actors.Evaluator.Name, Model: model(bundle.Actors.Evaluator)})
	if bundle.Actors.Executor.Name != "" {
		actors = append(actors, validateActor{Role: "executor", Name: bundle.Actors.Executor.Name, Model: model(bundle.Actors.Executor)})
	}
	return actors
}

func describeServer(name, command, url string) string {
	transport := fmt.Sprintf("stdio: %s", command)
	if url != "" {
		transport = fmt.Sprintf("http: %s", url)
	}
	if name == "" {
		return transport
	}
	return fmt.Sprintf("%s (%s)", name, transport)
}
