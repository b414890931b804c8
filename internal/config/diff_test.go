package config_test

import (
	"testing"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderEntry{Name: "openai", BaseURL: "http://localhost:1234/v1", Model: "m"},
			STT: config.ProviderEntry{Name: "whisper-native", Model: "base", Options: map[string]any{"model_dir": "models"}},
		},
		Store:    config.StoreConfig{Driver: config.StoreSQLite, Path: "meetings.db"},
		Storage:  config.StorageConfig{UploadsDir: "uploads"},
		Pipeline: config.PipelineConfig{MinDuration: time.Second},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if d.Changed() {
		t.Errorf("expected no changes for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change should not require a restart")
	}
}

func TestDiff_MinDurationChanged(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Pipeline.MinDuration = 3 * time.Second

	d := config.Diff(old, new)
	if !d.MinDurationChanged || d.NewMinDuration != 3*time.Second {
		t.Errorf("Diff = %+v, want min duration 3s", d)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9090" }},
		{"llm model", func(c *config.Config) { c.Providers.LLM.Model = "other" }},
		{"stt options", func(c *config.Config) { c.Providers.STT.Options["model_dir"] = "/opt/models" }},
		{"store driver", func(c *config.Config) { c.Store.Driver = config.StorePostgres }},
		{"uploads dir", func(c *config.Config) { c.Storage.UploadsDir = "/tmp/up" }},
		{"llm fallback added", func(c *config.Config) {
			c.Providers.LLMFallbacks = []config.ProviderEntry{{Name: "ollama", Model: "llama3.1"}}
		}},
		{"stt fallback added", func(c *config.Config) {
			c.Providers.STTFallbacks = []config.ProviderEntry{{Name: "whisper", BaseURL: "http://localhost:8081"}}
		}},
		{"breaker tuning", func(c *config.Config) { c.Providers.CircuitBreaker.MaxFailures = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tt.mutate(new)
			if d := config.Diff(old, new); !d.RestartRequired {
				t.Errorf("expected RestartRequired for %s change", tt.name)
			}
		})
	}
}

func TestDiff_NilAndEmptyOptionsEqual(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	old.Providers.LLM.Options = nil
	new.Providers.LLM.Options = map[string]any{}
	if d := config.Diff(old, new); d.RestartRequired {
		t.Error("nil and empty options should compare equal")
	}
}
