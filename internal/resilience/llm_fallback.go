package resilience

import (
	"context"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] over a [Group] of language models.
type LLMFallback struct {
	group *Group[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback wraps primary and fallbacks, tried in that order.
func NewLLMFallback(cfg CircuitBreakerConfig, primary Member[llm.Provider], fallbacks ...Member[llm.Provider]) *LLMFallback {
	return &LLMFallback{group: NewGroup(cfg, primary, fallbacks...)}
}

// Complete sends req to the first healthy model.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(ctx, f.group, func(ctx context.Context, p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// States reports each model's breaker state.
func (f *LLMFallback) States() map[string]State { return f.group.States() }
