package resilience

import (
	"context"
	"errors"
	"io"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] over a [Group] of transcribers, for
// example a whisper-server with the in-process model as backup.
type STTFallback struct {
	group *Group[stt.Provider]
}

var (
	_ stt.Provider = (*STTFallback)(nil)
	_ io.Closer    = (*STTFallback)(nil)
)

// NewSTTFallback wraps primary and fallbacks, tried in that order.
func NewSTTFallback(cfg CircuitBreakerConfig, primary Member[stt.Provider], fallbacks ...Member[stt.Provider]) *STTFallback {
	return &STTFallback{group: NewGroup(cfg, primary, fallbacks...)}
}

// TranscribeFile transcribes path with the first healthy provider.
func (f *STTFallback) TranscribeFile(ctx context.Context, path string) (*stt.Result, error) {
	return Do(ctx, f.group, func(ctx context.Context, p stt.Provider) (*stt.Result, error) {
		return p.TranscribeFile(ctx, path)
	})
}

// States reports each transcriber's breaker state.
func (f *STTFallback) States() map[string]State { return f.group.States() }

// Close closes every member that holds resources, such as a loaded whisper
// model.
func (f *STTFallback) Close() error {
	var errs []error
	f.group.Each(func(_ string, p stt.Provider) {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}
