// Package whisper provides whisper.cpp-backed speech-to-text providers.
//
// [Provider] talks to a running whisper-server binary, which exposes a REST
// API at POST /inference. [NativeProvider] links whisper.cpp in-process
// through its CGO bindings and loads a ggml model file on first use.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("en"))
//	res, err := p.TranscribeFile(ctx, "standup.wav")
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

const (
	defaultLanguage = stt.DefaultLanguage
	defaultTimeout  = 5 * time.Minute
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with. This is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code sent to the whisper.cpp server
// (e.g., "en", "de", "auto"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout bounds a single transcription request. Long recordings take
// a while on CPU-only servers; the default is five minutes.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient = &http.Client{Timeout: d}
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// inferenceResponse is the verbose_json body returned by whisper-server.
type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// TranscribeFile uploads the audio at path to the server. WAV files are sent
// as-is; anything else is first decoded to 16 kHz mono through ffmpeg.
func (p *Provider) TranscribeFile(ctx context.Context, path string) (*stt.Result, error) {
	wav, err := loadWAV(ctx, path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisper: write wav data: %w", err)
	}
	fields := map[string]string{
		"response_format": "verbose_json",
		"language":        p.language,
		"model":           p.model,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var out inferenceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	segs := make([]stt.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		segs = append(segs, stt.Segment{
			Start: secondsToDuration(s.Start),
			End:   secondsToDuration(s.End),
			Text:  s.Text,
		})
	}
	lang := out.Language
	if lang == "" && p.language != "auto" {
		lang = p.language
	}
	return stt.NewResult(out.Text, segs, lang), nil
}

// loadWAV returns the file bytes when path is already a WAV file and a
// freshly encoded 16 kHz mono WAV otherwise.
func loadWAV(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio: %w", err)
	}
	if audio.IsWAV(data) {
		return data, nil
	}
	samples, err := audio.Decode(ctx, path, audio.SpeechSampleRate)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return audio.EncodeWAV(audio.Float32ToPCM16(samples), audio.SpeechSampleRate, 1), nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
