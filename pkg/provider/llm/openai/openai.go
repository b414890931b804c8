// Package openai talks to any OpenAI-compatible chat-completion endpoint: the
// hosted OpenAI API, LM Studio, Ollama's /v1 surface, llama.cpp server, vLLM.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
)

// PlaceholderAPIKey is sent when no key is configured. Local servers ignore
// it; the SDK will not send an empty bearer token.
const PlaceholderAPIKey = "not-needed"

// ErrNoChoices is returned when the server answers without any choice.
var ErrNoChoices = errors.New("openai: response has no choices")

type settings struct {
	baseURL      string
	organization string
	timeout      time.Duration
	maxRetries   int
}

// Option configures a [Provider].
type Option func(*settings)

// WithBaseURL targets a self-hosted server, e.g. "http://localhost:1234/v1"
// for LM Studio.
func WithBaseURL(url string) Option { return func(s *settings) { s.baseURL = url } }

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option { return func(s *settings) { s.organization = org } }

// WithTimeout bounds each HTTP request. Summarising a long meeting on a
// local model can take minutes, so there is no default.
func WithTimeout(d time.Duration) Option { return func(s *settings) { s.timeout = d } }

// WithMaxRetries enables SDK retries. The default is none.
func WithMaxRetries(n int) Option { return func(s *settings) { s.maxRetries = n } }

// Provider implements [llm.Provider] with the openai-go SDK.
type Provider struct {
	client oai.Client
	model  string
}

var _ llm.Provider = (*Provider)(nil)

// New returns a Provider for model. An empty apiKey is replaced by
// [PlaceholderAPIKey].
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	if apiKey == "" {
		apiKey = PlaceholderAPIKey
	}
	var s settings
	for _, o := range opts {
		o(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(s.maxRetries),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(s.organization))
	}
	if s.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: s.timeout}))
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Model returns the model requested on every completion.
func (p *Provider) Model() string { return p.model }

// Complete implements [llm.Provider]. API failures carry the HTTP status in
// their message and unwrap to the SDK's *openai.Error.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai: %s: HTTP %d: %w", p.model, apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai: %s: %w", p.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		slog.Warn("completion cut off at the token limit", "model", p.model, "max_tokens", req.MaxTokens)
	}
	return &llm.CompletionResponse{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (p *Provider) buildParams(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return oai.ChatCompletionNewParams{}, errors.New("openai: request has no messages")
	}

	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, oai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		msg, err := toParam(m)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		msgs = append(msgs, msg)
	}

	params := oai.ChatCompletionNewParams{Model: shared.ChatModel(p.model), Messages: msgs}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params, nil
}

func toParam(m llm.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case llm.RoleSystem:
		return oai.SystemMessage(m.Content), nil
	case llm.RoleUser:
		return oai.UserMessage(m.Content), nil
	case llm.RoleAssistant:
		return oai.AssistantMessage(m.Content), nil
	}
	return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unsupported message role %q", m.Role)
}
