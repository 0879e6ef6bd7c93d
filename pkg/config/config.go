// Package config loads roundtable settings from defaults, an optional YAML
// file (plus profile overlays) and ROUNDTABLE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROUNDTABLE_"

type Config struct {
	Session   SessionConfig   `koanf:"session"`
	LLM       LLMConfig       `koanf:"llm"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Memory    MemoryConfig    `koanf:"memory"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type SessionConfig struct {
	MaxTurns        int     `koanf:"max_turns"`
	AcceptThreshold float64 `koanf:"accept_threshold"`
	ParallelCritics bool    `koanf:"parallel_critics"`
	TasksDir        string  `koanf:"tasks_dir"`
}

type LLMConfig struct {
	Provider         string `koanf:"provider"` // ollama, mock
	Model            string `koanf:"model"`
	BaseURL          string `koanf:"base_url"`
	MaxRetries       int    `koanf:"max_retries"`
	FallbackProvider string `koanf:"fallback_provider"`
	FallbackBaseURL  string `koanf:"fallback_base_url"`
}

type ArchiveConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory, none
	Path   string `koanf:"path"`
}

type MemoryConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Store           string `koanf:"store"` // qdrant, inmemory
	QdrantAddr      string `koanf:"qdrant_addr"`
	Collection      string `koanf:"collection"`
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
}

type TelemetryConfig struct {
	Exporter           string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// Load reads defaults, the optional YAML file at path, then environment
// overrides.
func Load(path string) (*Config, error) {
	return LoadWithProfile(path, "")
}

// LoadWithProfile additionally overlays config.<profile>.yaml from the same
// directory when it exists, between the base file and the environment.
func LoadWithProfile(path, profile string) (*Config, error) {
	return LoadWithOverrides(path, profile, nil)
}

// LoadWithOverrides applies "key=value" pairs last, on top of everything
// else. Values are strings; unmarshal coerces them to the field types.
func LoadWithOverrides(path, profile string, sets []string) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if profile != "" {
			if profilePath := profileFile(path, profile); profilePath != "" {
				if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("load profile config %s: %w", profilePath, err)
				}
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	for _, pair := range sets {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", pair)
		}
		k.Set(key, value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("session.max_turns", 10)
	k.Set("session.accept_threshold", 8.0)
	k.Set("session.parallel_critics", false)
	k.Set("session.tasks_dir", "tasks")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.max_retries", 0)

	k.Set("archive.driver", "sqlite")
	k.Set("archive.path", "roundtable.db")

	k.Set("memory.enabled", false)
	k.Set("memory.store", "qdrant")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "roundtable_experience")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_insecure", true)
	k.Set("telemetry.otlp_timeout_seconds", 0)

	k.Set("log.level", "info")
	k.Set("log.format", "text")
}

// envToKey maps ROUNDTABLE_LLM_BASE_URL to llm.base_url. The first underscore
// separates the section from the key; later ones stay literal.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

func profileFile(path, profile string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	candidate := filepath.Join(filepath.Dir(path), base+"."+profile+ext)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
