// Package app wires the meeting assistant together: the record store, the
// speech-to-text provider and the summarisation pipeline.
//
// The App struct owns the store lifecycle: New opens it from the config
// (unless one is injected), and Shutdown closes it. ProcessAudio runs the
// full pipeline for one recording; the remaining methods are thin wrappers
// around the store and the summariser used by the CLI, the HTTP API and the
// MCP server.
//
// For testing, inject doubles via functional options (WithStore,
// WithDurationProber, and so on).
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/internal/summarize"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/audio"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting/postgres"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting/sqlite"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// Providers holds one interface value per provider slot. Populated by main.go
// via the config registry.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
}

// DurationProber returns the playback length of an audio file.
type DurationProber func(ctx context.Context, path string) (time.Duration, error)

// App owns all subsystem lifetimes and runs the meeting pipeline.
type App struct {
	cfg        *config.Config
	providers  *Providers
	store      meeting.Store
	summarizer *summarize.Summarizer
	probe      DurationProber
	metrics    *observe.Metrics
	now        func() time.Time

	// minDuration is read per run so config reloads take effect.
	minDuration atomic.Int64

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a record store instead of opening one from config. An
// injected store is not closed by Shutdown.
func WithStore(s meeting.Store) Option {
	return func(a *App) { a.store = s }
}

// WithDurationProber replaces [audio.ProbeDuration].
func WithDurationProber(p DurationProber) Option {
	return func(a *App) { a.probe = p }
}

// WithMetrics records pipeline metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock overrides the time source used for new record dates.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New creates an App from cfg and providers. Both providers are required;
// a missing one fails with [config.ErrConfiguration].
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: %w: nil config", config.ErrConfiguration)
	}
	if providers == nil || providers.LLM == nil || providers.STT == nil {
		return nil, fmt.Errorf("app: %w: LLM and STT providers are required", config.ErrConfiguration)
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		probe:     audio.ProbeDuration,
		now:       time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.SetMinDuration(cfg.Pipeline.MinDuration)

	sum, err := summarize.New(providers.LLM,
		summarize.WithMetrics(a.metrics),
		summarize.WithProviderName(cfg.Providers.LLM.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.summarizer = sum

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	return a, nil
}

// initStore opens the configured store backend unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		s, err := postgres.NewStore(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = s
	case config.StoreSQLite, "":
		path := a.cfg.Store.Path
		if path == "" {
			path = config.DefaultDBPath
		}
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return err
		}
		a.store = s
	default:
		return fmt.Errorf("%w: unknown store driver %q", config.ErrConfiguration, a.cfg.Store.Driver)
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

// Store returns the record store.
func (a *App) Store() meeting.Store { return a.store }

// Summarizer returns the summarisation pipeline.
func (a *App) Summarizer() *summarize.Summarizer { return a.summarizer }

// MinDuration returns the shortest recording ProcessAudio accepts.
func (a *App) MinDuration() time.Duration {
	return time.Duration(a.minDuration.Load())
}

// SetMinDuration changes the shortest recording ProcessAudio accepts. Zero
// or negative values select [config.DefaultMinDuration]. Safe to call while
// runs are in flight.
func (a *App) SetMinDuration(d time.Duration) {
	if d <= 0 {
		d = config.DefaultMinDuration
	}
	a.minDuration.Store(int64(d))
}

// Shutdown closes everything New opened. It is safe to call more than once;
// only the first call has any effect.
func (a *App) Shutdown(_ context.Context) error {
	var firstErr error
	a.stopOnce.Do(func() {
		for _, c := range a.closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
