package config

import (
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, nil
	}
	return s, true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, true, nil
	}
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}
func (b *mapBackend) Delete(key string) error { delete(b.data, key); return nil }

func emptyBackend() *mapBackend {
	return &mapBackend{data: make(map[string]any)}
}

// TestDefaults verifies defaults survive an empty backend.
func TestDefaults(t *testing.T) {
	t.Setenv("DEALHUNTER_LLM_API_KEY", "test-key")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.Expiry.Schedule != "@hourly" {
		t.Errorf("Expiry.Schedule = %q, want @hourly", cfg.Expiry.Schedule)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if len(cfg.LLM.ModelList()) == 0 {
		t.Error("default model list is empty")
	}
}

// TestBackendValues verifies file-backed values override defaults.
func TestBackendValues(t *testing.T) {
	t.Setenv("DEALHUNTER_LLM_API_KEY", "test-key")

	b := &mapBackend{data: map[string]any{
		"server.port":      5000,
		"llm.base_url":     "http://localhost:8080/v1",
		"llm.models":       "local/test-model",
		"storage.data_dir": "/tmp/dealhunter-test",
		"expiry.schedule":  "@every 10m",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.Storage.DataDir != "/tmp/dealhunter-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Expiry.Schedule != "@every 10m" {
		t.Errorf("Expiry.Schedule = %q", cfg.Expiry.Schedule)
	}
	if got := cfg.LLM.ModelList(); len(got) != 1 || got[0] != "local/test-model" {
		t.Errorf("ModelList() = %v", got)
	}
}

// TestEnvOverride verifies environment variables beat backend values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("DEALHUNTER_LLM_API_KEY", "env-key")
	t.Setenv("DEALHUNTER_SERVER_PORT", "9999")
	t.Setenv("DEALHUNTER_LLM_MODELS", "a-model, b-model,")

	b := &mapBackend{data: map[string]any{"server.port": 5000}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	models := cfg.LLM.ModelList()
	if len(models) != 2 || models[0] != "a-model" || models[1] != "b-model" {
		t.Errorf("ModelList() = %v, want [a-model b-model]", models)
	}
}

// TestMissingAPIKey verifies a clear error when no API key is set anywhere.
func TestMissingAPIKey(t *testing.T) {
	t.Setenv("DEALHUNTER_LLM_API_KEY", "")

	_, err := loadWith(emptyBackend())
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to mention missing required config", err)
	}
}

// TestEmptyModelListRejected verifies at least one model is required.
func TestEmptyModelListRejected(t *testing.T) {
	t.Setenv("DEALHUNTER_LLM_API_KEY", "test-key")
	t.Setenv("DEALHUNTER_LLM_MODELS", " , ,")

	if _, err := loadWith(emptyBackend()); err == nil {
		t.Fatal("expected error for empty model list, got nil")
	}
}

// TestSecretsNeverListed verifies secrets stay out of ShowAll and ValidKeys.
func TestSecretsNeverListed(t *testing.T) {
	for _, info := range ShowAll(defaults()) {
		if info.Key == "llm.api_key" || info.Key == "server.api_token" {
			t.Errorf("secret key %q exposed by ShowAll", info.Key)
		}
	}
	for _, k := range ValidKeys() {
		if k == "llm.api_key" || k == "server.api_token" {
			t.Errorf("secret key %q exposed by ValidKeys", k)
		}
	}
}
