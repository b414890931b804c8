package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/resilience"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm/anyllm"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm/openai"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt/whisper"
)

// defaultModelDir holds ggml models named by size ("base", "small", ...).
const defaultModelDir = "models"

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	// openai talks to any OpenAI-compatible endpoint (LM Studio, vLLM,
	// llama-server, api.openai.com) through base_url.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// Every other vendor goes through any-llm.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			p, err := anyllm.New(providerName, entry.Model,
				anyllm.WithAPIKey(entry.APIKey),
				anyllm.WithBaseURL(entry.BaseURL),
			)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		p, err := whisper.New(entry.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		p, err := whisper.NewNative(nativeModelPath(entry), opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	slog.Debug("registered providers", "llm", reg.LLMNames(), "stt", reg.STTNames())
}

// nativeModelPath resolves the ggml file for a whisper-native entry. The
// model may be a path or a size name looked up in options.model_dir.
func nativeModelPath(entry config.ProviderEntry) string {
	dir := optString(entry.Options, "model_dir")
	if dir == "" {
		dir = defaultModelDir
	}
	return whisper.ResolveModelPath(dir, entry.Model)
}

// buildProviders instantiates the LLM and STT providers named in cfg using
// the registry. When fallbacks are configured the primary and its fallbacks
// are wrapped in a resilience group, each behind its own circuit breaker.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	pc := cfg.Providers
	breaker := resilience.CircuitBreakerConfig{
		MaxFailures:  pc.CircuitBreaker.MaxFailures,
		ResetTimeout: pc.CircuitBreaker.ResetTimeout,
	}

	llms, err := createAll("llm", reg.CreateLLM, pc.LLM, pc.LLMFallbacks)
	if err != nil {
		return nil, err
	}
	stts, err := createAll("stt", reg.CreateSTT, pc.STT, pc.STTFallbacks)
	if err != nil {
		return nil, err
	}

	ps := &app.Providers{LLM: llms[0].Provider, STT: stts[0].Provider}
	if len(llms) > 1 {
		ps.LLM = resilience.NewLLMFallback(breaker, llms[0], llms[1:]...)
	}
	if len(stts) > 1 {
		ps.STT = resilience.NewSTTFallback(breaker, stts[0], stts[1:]...)
	}
	return ps, nil
}

// createAll builds primary followed by each fallback. Members are named
// "<name>/<model>" so two entries of the same backend stay distinguishable
// in logs.
func createAll[T any](kind string, create func(config.ProviderEntry) (T, error), primary config.ProviderEntry, fallbacks []config.ProviderEntry) ([]resilience.Member[T], error) {
	entries := append([]config.ProviderEntry{primary}, fallbacks...)
	members := make([]resilience.Member[T], 0, len(entries))
	for i, e := range entries {
		p, err := create(e)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("create %s provider %q: %w", kind, e.Name, err)
			}
			return nil, fmt.Errorf("create %s fallback %d %q: %w", kind, i, e.Name, err)
		}
		name := e.Name
		if e.Model != "" {
			name += "/" + e.Model
		}
		members = append(members, resilience.Member[T]{Name: name, Provider: p})
		slog.Debug("provider created", "kind", kind, "name", e.Name, "model", e.Model, "fallback", i > 0)
	}
	return members, nil
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optDuration parses a duration option such as "90s". Invalid or missing
// values yield zero.
func optDuration(opts map[string]any, key string) time.Duration {
	d, err := time.ParseDuration(optString(opts, key))
	if err != nil {
		return 0
	}
	return d
}
