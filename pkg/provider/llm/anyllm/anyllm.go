// Package anyllm adapts github.com/mozilla-ai/any-llm-go to [llm.Provider],
// giving the summarizer one code path for hosted vendors (Anthropic, Gemini,
// Mistral, ...) and local runtimes (Ollama, llama.cpp, llamafile).
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
)

// Backends lists the names accepted by [New], in a stable order.
var Backends = []string{"anthropic", "deepseek", "gemini", "groq", "llamacpp", "llamafile", "mistral", "ollama", "openai"}

// ErrUnknownBackend is returned by [New] for a name not in [Backends].
var ErrUnknownBackend = errors.New("anyllm: unknown backend")

// Option configures a [Provider].
type Option func(*options)

type options struct {
	lib []anyllmlib.Option
}

// WithAPIKey sets the vendor API key. Without it the backend reads its usual
// environment variable (ANTHROPIC_API_KEY, GEMINI_API_KEY, ...).
func WithAPIKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.lib = append(o.lib, anyllmlib.WithAPIKey(key))
		}
	}
}

// WithBaseURL points the backend at a non-default endpoint, typically a local
// Ollama or llama.cpp server on another host.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.lib = append(o.lib, anyllmlib.WithBaseURL(url))
		}
	}
}

// Provider implements [llm.Provider] on top of one any-llm-go backend.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
}

var _ llm.Provider = (*Provider)(nil)

// New returns a Provider for the named backend (case-insensitive) and model.
func New(backend, model string, opts ...Option) (*Provider, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	if !slices.Contains(Backends, name) {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownBackend, backend, strings.Join(Backends, ", "))
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: %s: model must not be empty", name)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	b, err := newBackend(name, o.lib)
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s: %w", name, err)
	}
	return &Provider{backend: b, name: name, model: model}, nil
}

func newBackend(name string, opts []anyllmlib.Option) (anyllmlib.Provider, error) {
	switch name {
	case "anthropic":
		return anthropic.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return anyllmoai.New(opts...)
	}
}

// Backend returns the normalised backend name.
func (p *Provider) Backend() string { return p.name }

// Model returns the model requested on every completion.
func (p *Provider) Model() string { return p.model }

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("anyllm: %s: request has no messages", p.name)
	}

	resp, err := p.backend.Completion(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s: completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: %s: response has no choices", p.name)
	}

	out := &llm.CompletionResponse{Content: resp.Choices[0].Message.ContentString()}
	if u := resp.Usage; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	msgs := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	params := anyllmlib.CompletionParams{Model: p.model, Messages: msgs}
	if req.Temperature != 0 {
		params.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = &req.MaxTokens
	}
	return params
}
