package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jllopis/roundtable/pkg/archive"
	"github.com/jllopis/roundtable/pkg/config"
	"github.com/jllopis/roundtable/pkg/llm"
	"github.com/jllopis/roundtable/pkg/memory"
	memollama "github.com/jllopis/roundtable/pkg/memory/ollama"
	"github.com/jllopis/roundtable/pkg/memory/qdrant"
	"github.com/jllopis/roundtable/pkg/pipeline"
	"github.com/jllopis/roundtable/pkg/session"
	"github.com/jllopis/roundtable/pkg/telemetry"
)

type runResult struct {
	SessionID   string `json:"session_id"`
	Task        string `json:"task"`
	Turns       int    `json:"turns"`
	Success     bool   `json:"success"`
	FinalPlan   string `json:"final_plan,omitempty"`
	FinalResult any    `json:"final_result,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

func runRun(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	if cmd.NArg() != 1 {
		fatal(errors.New("usage: roundtable run <task>"))
	}

	bundle, err := session.LoadTask(resolveTaskDir(cfg, cmd.Arg(0)))
	if err != nil {
		fatal(err)
	}
	applySessionDefaults(bundle, cfg.Session)

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("roundtable", version, telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
	})
	if err != nil {
		fatal(err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		fatal(err)
	}

	provider, err := llm.NewFromConfig(llm.Config{
		Provider:         cfg.LLM.Provider,
		BaseURL:          cfg.LLM.BaseURL,
		MaxRetries:       cfg.LLM.MaxRetries,
		FallbackProvider: cfg.LLM.FallbackProvider,
		FallbackBaseURL:  cfg.LLM.FallbackBaseURL,
	})
	if err != nil {
		fatal(err)
	}

	store, closeStore, err := openArchive(cfg.Archive)
	if err != nil {
		fatal(err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	mem, err := openMemory(cfg.Memory)
	if err != nil {
		fatal(err)
	}

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	}
	if store != nil {
		sessionOpts = append(sessionOpts, session.WithArchive(store))
	}
	if mem != nil {
		sessionOpts = append(sessionOpts, session.WithMemory(mem))
	}

	sess, err := session.Build(ctx, bundle, provider,
		session.WithDefaultModel(cfg.LLM.Model),
		session.WithControllerOptions(
			pipeline.WithLogger(logger),
			pipeline.WithMetrics(metrics),
		),
		session.WithSessionOptions(sessionOpts...),
	)
	if err != nil {
		fatal(err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("session close", "error", err)
		}
	}()

	summary, err := sess.Run(ctx)
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		printJSON(runResult{
			SessionID:   summary.SessionID,
			Task:        summary.Task,
			Turns:       summary.Turns,
			Success:     summary.Success,
			FinalPlan:   summary.FinalPlan,
			FinalResult: summary.FinalResult,
			ElapsedMS:   summary.Elapsed.Milliseconds(),
		})
		return
	}

	outcome := "rejected after"
	if summary.Success {
		outcome = "accepted in"
	}
	fmt.Printf("session %s: %s %d round(s), %s\n",
		summary.SessionID, outcome, summary.Turns, summary.Elapsed.Round(time.Millisecond))
	if summary.FinalPlan != "" {
		fmt.Printf("\nFinal plan:\n%s\n", summary.FinalPlan)
	}
	if summary.FinalResult != nil {
		if result, ok := summary.FinalResult.(string); !ok || result != summary.FinalPlan {
			fmt.Printf("\nFinal result:\n%v\n", summary.FinalResult)
		}
	}
}

// resolveTaskDir accepts either a bundle directory path or a bundle name
// under the configured tasks directory.
func resolveTaskDir(cfg *config.Config, arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg
	}
	return filepath.Join(cfg.Session.TasksDir, arg)
}

// applySessionDefaults fills bundle budget gaps from config. Bundle values
// win over config values.
func applySessionDefaults(bundle *session.Bundle, cfg config.SessionConfig) {
	if bundle.MaxTurns == 0 && cfg.MaxTurns > 0 {
		bundle.MaxTurns = cfg.MaxTurns
	}
	if bundle.AcceptThreshold == 0 && cfg.AcceptThreshold > 0 {
		bundle.AcceptThreshold = cfg.AcceptThreshold
	}
	if !bundle.ParallelCritics && cfg.ParallelCritics {
		bundle.ParallelCritics = true
	}
}

func openArchive(cfg config.ArchiveConfig) (archive.Store, func(), error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil, nil
	case "memory":
		return archive.NewMemoryStore(), nil, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive %s: %w", cfg.Path, err)
		}
		store, err := archive.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

func openMemory(cfg config.MemoryConfig) (*memory.ExperienceMemory, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var store memory.VectorStore
	switch cfg.Store {
	case "", "qdrant":
		qs, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, err
		}
		store = qs
	case "inmemory":
		store = memory.NewInMemoryStore()
	default:
		return nil, fmt.Errorf("unknown memory store %q", cfg.Store)
	}
	embedder := memollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel)
	return memory.NewExperienceMemory(store, embedder, memory.WithCollection(cfg.Collection))
}
