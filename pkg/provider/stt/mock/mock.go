// Package mock provides a test double for the stt.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Result: &stt.Result{Text: "We agreed to ship Friday."}}
//	res, err := p.TranscribeFile(ctx, "standup.wav")
package mock

import (
	"context"
	"sync"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// TranscribeCall records a single invocation of TranscribeFile.
type TranscribeCall struct {
	// Ctx is the context passed to TranscribeFile.
	Ctx context.Context
	// Path is the audio path passed to TranscribeFile.
	Path string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by TranscribeFile. A nil Result yields an empty
	// transcript in DefaultLanguage.
	Result *stt.Result

	// Err, if non-nil, is returned as the error from TranscribeFile.
	Err error

	// Calls records every invocation of TranscribeFile in order.
	Calls []TranscribeCall
}

// TranscribeFile records the call and returns Result, Err.
func (p *Provider) TranscribeFile(ctx context.Context, path string) (*stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Path: path})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result == nil {
		return &stt.Result{Language: stt.DefaultLanguage}, nil
	}
	res := *p.Result
	return &res, nil
}

// CallCount returns the number of TranscribeFile calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
