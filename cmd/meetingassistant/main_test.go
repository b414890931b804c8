package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/resilience"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
	storemock "github.com/B-Dastan/ai-meeting-assistant/pkg/meeting/mock"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
	llmmock "github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm/mock"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm/openai"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
	sttmock "github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt/mock"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt/whisper"
)

func TestOptString(t *testing.T) {
	t.Parallel()

	opts := map[string]any{"language": "de", "threads": 4}
	if got := optString(opts, "language"); got != "de" {
		t.Errorf("language = %q, want de", got)
	}
	if got := optString(opts, "threads"); got != "" {
		t.Errorf("non-string value = %q, want empty", got)
	}
	if got := optString(nil, "language"); got != "" {
		t.Errorf("nil map = %q, want empty", got)
	}
}

func TestOptDuration(t *testing.T) {
	t.Parallel()

	opts := map[string]any{"timeout": "90s", "bad": "soon"}
	if got := optDuration(opts, "timeout"); got != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", got)
	}
	if got := optDuration(opts, "bad"); got != 0 {
		t.Errorf("invalid duration = %v, want 0", got)
	}
}

func TestNativeModelPath(t *testing.T) {
	t.Parallel()

	entry := config.ProviderEntry{Name: "whisper-native", Model: "base"}
	if got, want := nativeModelPath(entry), filepath.Join("models", "ggml-base.bin"); got != want {
		t.Errorf("default dir: got %q, want %q", got, want)
	}
	entry.Options = map[string]any{"model_dir": "/opt/whisper"}
	if got, want := nativeModelPath(entry), filepath.Join("/opt/whisper", "ggml-base.bin"); got != want {
		t.Errorf("model_dir: got %q, want %q", got, want)
	}
}

func TestBuildProviders(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	cfg := &config.Config{Providers: config.ProvidersConfig{
		LLM: config.ProviderEntry{Name: "openai", Model: "llama-3.2-3b", BaseURL: "http://localhost:1234/v1"},
		STT: config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8080"},
	}}
	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if _, ok := ps.LLM.(*openai.Provider); !ok {
		t.Errorf("LLM = %T, want *openai.Provider", ps.LLM)
	}
	if _, ok := ps.STT.(*whisper.Provider); !ok {
		t.Errorf("STT = %T, want *whisper.Provider", ps.STT)
	}

	cfg.Providers.STT = config.ProviderEntry{Name: "whisper-native", Model: "tiny"}
	ps, err = buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders native: %v", err)
	}
	native, ok := ps.STT.(*whisper.NativeProvider)
	if !ok {
		t.Fatalf("STT = %T, want *whisper.NativeProvider", ps.STT)
	}
	if native.Loaded() {
		t.Error("native model loaded eagerly")
	}

	cfg.Providers.LLM.Name = "carrier-pigeon"
	if _, err := buildProviders(cfg, reg); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("unknown provider error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestBuildProviders_Fallbacks(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	cfg := &config.Config{Providers: config.ProvidersConfig{
		LLM:          config.ProviderEntry{Name: "openai", Model: "m", BaseURL: "http://localhost:1234/v1"},
		LLMFallbacks: []config.ProviderEntry{{Name: "openai", Model: "m", BaseURL: "http://backup:1234/v1"}},
		STT:          config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8080"},
		STTFallbacks: []config.ProviderEntry{{Name: "whisper-native", Model: "base"}},
	}}
	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if _, ok := ps.LLM.(*resilience.LLMFallback); !ok {
		t.Errorf("LLM = %T, want *resilience.LLMFallback", ps.LLM)
	}
	sf, ok := ps.STT.(*resilience.STTFallback)
	if !ok {
		t.Fatalf("STT = %T, want *resilience.STTFallback", ps.STT)
	}
	if states := sf.States(); len(states) != 2 || states["whisper-native/base"] != resilience.StateClosed {
		t.Errorf("stt states = %v", states)
	}

	cfg.Providers.STTFallbacks = []config.ProviderEntry{{Name: "whisper"}}
	_, err = buildProviders(cfg, reg)
	if err == nil || !strings.Contains(err.Error(), "stt fallback 1") {
		t.Errorf("bad fallback error = %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := parseID(bad); !errors.Is(err, meeting.ErrValidation) {
			t.Errorf("parseID(%q) error = %v, want ErrValidation", bad, err)
		}
	}
}

// harness runs CLI commands against an App built from mocks.
type harness struct {
	store *storemock.Store
	out   bytes.Buffer
	audio string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: &storemock.Store{}}
	h.audio = filepath.Join(t.TempDir(), "standup.wav")
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()

	c := newCLI(&h.out)
	c.loadConfig = func(string) (*config.Config, error) {
		return &config.Config{Server: config.ServerConfig{LogLevel: config.LogWarn}}, nil
	}
	c.newApp = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		llmp := &llmmock.Provider{CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			switch {
			case strings.Contains(req.SystemPrompt, "title"):
				return "Release planning", nil
			case strings.Contains(req.SystemPrompt, "action items"):
				return `["Bob: run QA"]`, nil
			case strings.Contains(req.SystemPrompt, "key points"):
				return `["Ship Friday"]`, nil
			case strings.Contains(req.SystemPrompt, "question"):
				return "Bob runs QA.", nil
			}
			return "The team agreed to ship Friday.", nil
		}}
		sttp := &sttmock.Provider{Result: stt.NewResult("We ship Friday and Bob runs QA", nil, "en")}
		return app.New(ctx, cfg, &app.Providers{LLM: llmp, STT: sttp},
			app.WithStore(h.store),
			app.WithDurationProber(func(context.Context, string) (time.Duration, error) { return time.Minute, nil }),
		)
	}
	defer c.close()

	root := newRootCommand(c)
	root.SetOut(&h.out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	return root.ExecuteContext(context.Background())
}

func TestCommands_Lifecycle(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(h.out.String(), "No meetings found.") {
		t.Errorf("empty list output = %q", h.out.String())
	}

	if err := h.run(t, "process", h.audio); err != nil {
		t.Fatalf("process: %v", err)
	}
	for _, want := range []string{"#1  Release planning", "Ship Friday", "Bob: run QA"} {
		if !strings.Contains(h.out.String(), want) {
			t.Errorf("process output missing %q:\n%s", want, h.out.String())
		}
	}

	if err := h.run(t, "search", "FRIDAY"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(h.out.String(), "Release planning") {
		t.Errorf("search output = %q", h.out.String())
	}

	if err := h.run(t, "ask", "1", "Who", "runs", "QA?"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got := strings.TrimSpace(h.out.String()); got != "Bob runs QA." {
		t.Errorf("ask output = %q", got)
	}

	if err := h.run(t, "rename", "1", "Go-live", "sync"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := h.run(t, "show", "1", "--transcript"); err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Go-live sync", "Transcript", "We ship Friday"} {
		if !strings.Contains(h.out.String(), want) {
			t.Errorf("show output missing %q:\n%s", want, h.out.String())
		}
	}

	if err := h.run(t, "delete", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := h.run(t, "show", "1"); !errors.Is(err, meeting.ErrNotFound) {
		t.Errorf("show after delete error = %v, want ErrNotFound", err)
	}
}

func TestCommands_JSONList(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "list", "--json"); err != nil {
		t.Fatalf("list --json: %v", err)
	}
	if got := strings.TrimSpace(h.out.String()); got != "[]" {
		t.Errorf("empty JSON list = %q, want []", got)
	}
}

func TestCommands_ProcessReportsFailures(t *testing.T) {
	h := newHarness(t)
	h.store.SaveErr = errors.New("disk full")

	err := h.run(t, "process", h.audio, h.audio)
	if err == nil || !strings.Contains(err.Error(), "2 of 2 recordings failed") {
		t.Errorf("process error = %v", err)
	}
}

func TestCommands_RejectsBadID(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "show", "abc"); !errors.Is(err, meeting.ErrValidation) {
		t.Errorf("show abc error = %v, want ErrValidation", err)
	}
}

func TestDoctor_ReportsAppFailure(t *testing.T) {
	var out bytes.Buffer
	c := newCLI(&out)
	c.cfg = &config.Config{Storage: config.StorageConfig{UploadsDir: t.TempDir()}}
	c.newApp = func(context.Context, *config.Config) (*app.App, error) {
		return nil, errors.New("llm unreachable")
	}

	if err := c.doctor(context.Background()); err == nil {
		t.Fatal("doctor succeeded, want failure")
	}
	if !strings.Contains(out.String(), "FAIL  app: llm unreachable") {
		t.Errorf("doctor output = %q", out.String())
	}
	if !strings.Contains(out.String(), "ok    uploads") {
		t.Errorf("uploads check missing from output: %q", out.String())
	}
}

func TestPrintStartupSummary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printStartupSummary(&out, &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":8080"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai", Model: "a-very-long-model-name"}},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	width := len([]rune(lines[0]))
	for _, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Errorf("line %q has width %d, want %d", l, n, width)
		}
	}
	if !strings.Contains(out.String(), "(not configured)") {
		t.Errorf("missing STT placeholder:\n%s", out.String())
	}
}
