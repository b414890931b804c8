package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"whisper", "whisper-native"},
}

// EnvOverrides maps environment variables to the setting they replace.
// WHISPER_MODEL_SIZE is accepted as an alias of WHISPER_MODEL.
var EnvOverrides = []struct {
	Name  string
	Apply func(cfg *Config, v string)
}{
	{"LLM_BASE_URL", func(c *Config, v string) { c.Providers.LLM.BaseURL = v }},
	{"LLM_MODEL", func(c *Config, v string) { c.Providers.LLM.Model = v }},
	{"LLM_API_KEY", func(c *Config, v string) { c.Providers.LLM.APIKey = v }},
	{"WHISPER_MODEL_SIZE", func(c *Config, v string) { c.Providers.STT.Model = v }},
	{"WHISPER_MODEL", func(c *Config, v string) { c.Providers.STT.Model = v }},
	{"MEETING_DB_PATH", func(c *Config, v string) { c.Store.Path = v }},
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and validates the result. A missing file is
// allowed; the environment must then supply the required settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	if err != nil {
		slog.Debug("config file not found, using environment only", "path", path)
	}
	cfg, err := parse(data, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. The environment is not consulted. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return parse(data, nil)
}

// parse decodes data, overlays the variables found by lookup (when non-nil),
// fills defaults and validates.
func parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", ErrConfiguration, err)
		}
	}
	if lookup != nil {
		ApplyEnv(cfg, lookup)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty values of the variables in [EnvOverrides].
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	for _, o := range EnvOverrides {
		if v, ok := lookup(o.Name); ok && v != "" {
			o.Apply(cfg, v)
		}
	}
}

// ApplyDefaults fills empty fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM.Name = DefaultLLMProvider
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = DefaultSTTProvider
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreSQLite
	}
	if cfg.Store.Driver == StoreSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = DefaultDBPath
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = DefaultUploadsDir
	}
	if cfg.Pipeline.MinDuration == 0 {
		cfg.Pipeline.MinDuration = DefaultMinDuration
	}
}

// Validate checks that cfg contains a coherent set of values. It returns an
// error wrapping [ErrConfiguration] that lists every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)

	llm := cfg.Providers.LLM
	if llm.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required (or set LLM_MODEL)"))
	}
	if llm.Name == "openai" && llm.BaseURL == "" {
		errs = append(errs, errors.New("providers.llm.base_url is required for an OpenAI-compatible endpoint (or set LLM_BASE_URL)"))
	}

	stt := cfg.Providers.STT
	switch stt.Name {
	case "whisper":
		if stt.BaseURL == "" {
			errs = append(errs, errors.New("providers.stt.base_url is required for whisper-server"))
		}
	case "whisper-native":
		if stt.Model == "" {
			errs = append(errs, errors.New("providers.stt.model is required (or set WHISPER_MODEL)"))
		}
	}

	for i, fb := range cfg.Providers.LLMFallbacks {
		switch {
		case fb.Name == "":
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
		case fb.Model == "":
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].model is required", i))
		default:
			validateProviderName("llm", fb.Name)
		}
	}
	for i, fb := range cfg.Providers.STTFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("stt", fb.Name)
	}
	if cb := cfg.Providers.CircuitBreaker; cb.MaxFailures < 0 || cb.ResetTimeout < 0 {
		errs = append(errs, errors.New("providers.circuit_breaker values must not be negative"))
	}

	switch {
	case cfg.Store.Driver != "" && !cfg.Store.Driver.IsValid():
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: sqlite, postgres", cfg.Store.Driver))
	case cfg.Store.Driver == StorePostgres && cfg.Store.PostgresDSN == "":
		errs = append(errs, errors.New("store.postgres_dsn is required when store.driver is postgres"))
	}

	if cfg.Pipeline.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_duration %s must not be negative", cfg.Pipeline.MinDuration))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
