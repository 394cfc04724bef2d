package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Expiry  ExpiryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	// Models is a comma-separated preference list; the first model that
	// returns a usable answer wins.
	Models string
}

type StorageConfig struct {
	DataDir string
}

type ExpiryConfig struct {
	Schedule string
}

type LogConfig struct {
	Level string
}

// ModelList splits the configured model preference string.
func (c LLMConfig) ModelList() []string {
	var models []string
	for _, m := range strings.Split(c.Models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		LLM: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Models:  "openai/gpt-4o-mini,anthropic/claude-3-5-haiku",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Expiry: ExpiryConfig{
			Schedule: "@hourly",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/dealhunter/config.json, then applies DEALHUNTER_*
// environment variable overrides. Secrets (the LLM API key and the API
// bearer token) are environment-only and never touch the file.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: LLM API key. Set it via environment variable DEALHUNTER_LLM_API_KEY")
	}
	if len(cfg.LLM.ModelList()) == 0 {
		return Config{}, fmt.Errorf("missing required config: llm.models must name at least one model")
	}

	return cfg, nil
}
