// Package config loads the valet configuration from ~/.valet/config.toml.
// A missing, unparsable, or invalid file never prevents startup: the loader
// logs the problem and falls back to hardcoded defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	DefaultMaxToolCalls = 5
	maxMaxToolCalls     = 20
)

// AgentOverride customizes one agent's model, temperature, or system prompt.
type AgentOverride struct {
	Model        string   `toml:"model"`
	Temperature  *float64 `toml:"temperature"`
	SystemPrompt string   `toml:"system_prompt"`
}

type Config struct {
	LogLevel string `toml:"log_level"`
	LLM      struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		APIKey   string `toml:"api_key"`
		BaseURL  string `toml:"base_url"`
	} `toml:"llm"`
	Telegram struct {
		BotToken string `toml:"bot_token"`
	} `toml:"telegram"`
	MaxToolCalls int `toml:"max_tool_calls"`
	Agents       struct {
		Planner     AgentOverride `toml:"planner"`
		Synthesizer AgentOverride `toml:"synthesizer"`
	} `toml:"agents"`
}

// Default returns the hardcoded configuration used whenever the on-disk
// config is absent or invalid.
func Default() *Config {
	cfg := &Config{}
	cfg.LogLevel = "info"
	cfg.LLM.Provider = ProviderOllama
	cfg.LLM.Model = "llama3.2"
	cfg.MaxToolCalls = DefaultMaxToolCalls
	return cfg
}

// Load reads the config at path. Any read, parse, or validation failure is
// logged and answered with Default(); env vars override last.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Info("no config file, using defaults", "path", path)
	case err != nil:
		slog.Warn("config read failed, using defaults", "path", path, "error", err)
	default:
		parsed := Default()
		if _, err := toml.Decode(string(data), parsed); err != nil {
			slog.Warn("config parse failed, using defaults", "path", path, "error", err)
		} else if err := parsed.validate(); err != nil {
			slog.Warn("config validation failed, using defaults", "path", path, "error", err)
		} else {
			cfg = parsed
		}
	}

	// Env overrides (highest precedence)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.LLM.BaseURL = base
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}

	return cfg
}

func (c *Config) validate() error {
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderOllama {
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.MaxToolCalls < 1 || c.MaxToolCalls > maxMaxToolCalls {
		return fmt.Errorf("max_tool_calls must be between 1 and %d, got %d", maxMaxToolCalls, c.MaxToolCalls)
	}
	for _, ov := range []AgentOverride{c.Agents.Planner, c.Agents.Synthesizer} {
		if ov.Temperature != nil && (*ov.Temperature < 0 || *ov.Temperature > 2) {
			return fmt.Errorf("agent temperature must be between 0 and 2, got %v", *ov.Temperature)
		}
	}
	return nil
}

// Save writes the config as TOML, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
