package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/llm"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned when a [ProviderEntry] names a
// provider no factory was registered for. It wraps [ErrConfiguration].
var ErrProviderNotRegistered = fmt.Errorf("%w: provider not registered", ErrConfiguration)

// Factory builds a provider from its config entry.
type Factory[P any] func(ProviderEntry) (P, error)

type factories[P any] struct {
	kind string
	m    map[string]Factory[P]
}

func (f factories[P]) create(entry ProviderEntry) (P, error) {
	var zero P
	build, ok := f.m[entry.Name]
	if !ok {
		return zero, fmt.Errorf("%w: %s provider %q (registered: %s)",
			ErrProviderNotRegistered, f.kind, entry.Name, strings.Join(f.names(), ", "))
	}
	p, err := build(entry)
	if err != nil {
		return zero, fmt.Errorf("%w: %s provider %q: %w", ErrConfiguration, f.kind, entry.Name, err)
	}
	return p, nil
}

func (f factories[P]) names() []string {
	return slices.Sorted(maps.Keys(f.m))
}

// Registry maps the provider names used in config files to factories. It is
// safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm factories[llm.Provider]
	stt factories[stt.Provider]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		llm: factories[llm.Provider]{kind: "llm", m: map[string]Factory[llm.Provider]{}},
		stt: factories[stt.Provider]{kind: "stt", m: map[string]Factory[stt.Provider]{}},
	}
}

// RegisterLLM registers a chat-completion factory, replacing any previous one
// under the same name.
func (r *Registry) RegisterLLM(name string, f Factory[llm.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.m[name] = f
}

// RegisterSTT registers a transcription factory, replacing any previous one
// under the same name.
func (r *Registry) RegisterSTT(name string, f Factory[stt.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt.m[name] = f
}

// LLMNames returns the registered LLM provider names, sorted.
func (r *Registry) LLMNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.names()
}

// STTNames returns the registered STT provider names, sorted.
func (r *Registry) STTNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stt.names()
}

// CreateLLM builds the LLM provider entry names. Factory failures wrap
// [ErrConfiguration].
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.create(entry)
}

// CreateSTT builds the STT provider entry names. Factory failures wrap
// [ErrConfiguration].
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stt.create(entry)
}
