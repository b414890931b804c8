package config

import (
	"reflect"
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// is reported as RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	MinDurationChanged bool
	NewMinDuration     time.Duration

	// RestartRequired is set when providers, store, storage or the listen
	// address changed. Those are only read at startup.
	RestartRequired bool
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.MinDurationChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Pipeline.MinDuration != new.Pipeline.MinDuration {
		d.MinDurationChanged = true
		d.NewMinDuration = new.Pipeline.MinDuration
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!providerEqual(old.Providers.LLM, new.Providers.LLM) ||
		!providerEqual(old.Providers.STT, new.Providers.STT) ||
		!slices.EqualFunc(old.Providers.LLMFallbacks, new.Providers.LLMFallbacks, providerEqual) ||
		!slices.EqualFunc(old.Providers.STTFallbacks, new.Providers.STTFallbacks, providerEqual) ||
		old.Providers.CircuitBreaker != new.Providers.CircuitBreaker ||
		old.Store != new.Store ||
		old.Storage != new.Storage {
		d.RestartRequired = true
	}
	return d
}

func providerEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return len(a.Options) == 0 && len(b.Options) == 0 || reflect.DeepEqual(a.Options, b.Options)
}
