// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// ModelSizes are the model names accepted in place of a file path.
var ModelSizes = []string{"tiny", "tiny.en", "base", "base.en", "small", "small.en", "medium", "medium.en", "large-v3", "large-v3-turbo"}

// NativeProvider implements stt.Provider using whisper.cpp Go bindings.
//
// The model is loaded on the first TranscribeFile call and kept for the
// provider's lifetime. Concurrent first calls wait on a single load. A
// failed load is not remembered, so the next call tries again.
type NativeProvider struct {
	modelPath string
	language  string
	load      func(path string) (whisperlib.Model, error)

	mu    sync.Mutex
	model whisperlib.Model
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code for transcription (e.g., "en",
// "de", or "auto" for detection). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// withLoader replaces the model loader. Used by tests.
func withLoader(fn func(string) (whisperlib.Model, error)) NativeOption {
	return func(p *NativeProvider) { p.load = fn }
}

// NewNative creates a NativeProvider for the ggml model at modelPath. The
// file is not opened until the first transcription. The caller must call
// Close when the provider is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	p := &NativeProvider{
		modelPath: modelPath,
		language:  defaultLanguage,
		load:      whisperlib.New,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ResolveModelPath maps a configured model to a file. A value naming an
// existing file is returned unchanged; a size name such as "base" becomes
// "<dir>/ggml-base.bin".
func ResolveModelPath(dir, model string) string {
	if model == "" {
		return ""
	}
	if _, err := os.Stat(model); err == nil {
		return model
	}
	if strings.ContainsRune(model, os.PathSeparator) || strings.HasSuffix(model, ".bin") {
		return model
	}
	return filepath.Join(dir, "ggml-"+model+".bin")
}

// ModelPath returns the configured model file.
func (p *NativeProvider) ModelPath() string { return p.modelPath }

// Loaded reports whether the model is currently held in memory.
func (p *NativeProvider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model != nil
}

// Close releases the whisper model if it was loaded.
func (p *NativeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	err := p.model.Close()
	p.model = nil
	return err
}

func (p *NativeProvider) ensureModel() (whisperlib.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}
	slog.Info("loading whisper model", "path", p.modelPath)
	m, err := p.load(p.modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", p.modelPath, err)
	}
	p.model = m
	return m, nil
}

// TranscribeFile decodes the audio at path to 16 kHz mono and runs
// whisper.cpp inference on it. Each call uses a fresh whisper context; the
// model is shared.
func (p *NativeProvider) TranscribeFile(ctx context.Context, path string) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	samples, err := audio.Load(ctx, path, audio.SpeechSampleRate)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	model, err := p.ensureModel()
	if err != nil {
		return nil, err
	}

	// A context is not thread-safe, but the model can be shared across goroutines.
	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		segs  []stt.Segment
		parts []string
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		segs = append(segs, stt.Segment{Start: segment.Start, End: segment.End, Text: segment.Text})
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	lang := p.language
	if lang == "auto" {
		lang = wctx.DetectedLanguage()
	}
	return stt.NewResult(strings.Join(parts, " "), segs, lang), nil
}
