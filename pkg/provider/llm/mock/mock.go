// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the summarization pipeline sends
// correct CompletionRequests and to feed controlled responses without a live
// model. All fields are safe to set before calling any method; mutating them
// during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{Responses: []string{"Weekly sync", "Summary."}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Complete resolves its reply in this order: CompleteFunc if set, then the
// next entry of Responses, then CompleteResponse. CompleteErr, if non-nil,
// short-circuits all of them.
type Provider struct {
	mu sync.Mutex

	// CompleteFunc computes the response from the request.
	CompleteFunc func(req llm.CompletionRequest) (string, error)

	// Responses is consumed one entry per call, in order.
	Responses []string

	// CompleteResponse is returned once Responses is exhausted. May be nil
	// (returns an empty response).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured reply.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if p.CompleteFunc != nil {
		content, err := p.CompleteFunc(req)
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Content: content}, nil
	}
	if len(p.Responses) > 0 {
		content := p.Responses[0]
		p.Responses = p.Responses[1:]
		return &llm.CompletionResponse{Content: content}, nil
	}
	if p.CompleteResponse != nil {
		resp := *p.CompleteResponse
		return &resp, nil
	}
	return &llm.CompletionResponse{}, nil
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
