// Package observe provides application-wide observability primitives for the
// meeting assistant: OpenTelemetry metrics, tracing, trace-aware logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [Setup]
// installs a Prometheus exporter bridge so the HTTP server can expose them on
// /metrics. A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/B-Dastan/ai-meeting-assistant"

// Status attribute values used with the counters below.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks a single LLM completion round trip. Use with
	// attribute.String("task", ...).
	LLMDuration metric.Float64Histogram

	// PipelineDuration tracks a full audio-to-stored-meeting run.
	PipelineDuration metric.Float64Histogram

	// ToolExecutionDuration tracks MCP tool handler latency.
	ToolExecutionDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// ParseFallbacks counts LLM list responses that were not valid JSON and
	// went through the line-based recovery parser. Use with attribute:
	//   attribute.String("task", ...)
	ParseFallbacks metric.Int64Counter

	// MeetingsProcessed counts pipeline runs. Use with attribute:
	//   attribute.String("status", ...)
	MeetingsProcessed metric.Int64Counter

	// MeetingsDeleted counts removed meetings.
	MeetingsDeleted metric.Int64Counter

	// QuestionsAnswered counts Q&A requests against stored meetings.
	QuestionsAnswered metric.Int64Counter

	// ToolCalls counts MCP tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// --- Gauges ---

	// ActiveJobs tracks the number of pipeline runs in flight.
	ActiveJobs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time by method,
	// route pattern and status class. See [Metrics.RecordHTTPRequest].
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Local
// transcription and summarisation of long recordings take minutes, so the
// range is wide.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("meeting.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("meeting.llm.duration",
		metric.WithDescription("Latency of a single LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("meeting.pipeline.duration",
		metric.WithDescription("End-to-end latency from audio file to stored meeting."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("meeting.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("meeting.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("meeting.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ParseFallbacks, err = m.Int64Counter("meeting.llm.parse_fallbacks",
		metric.WithDescription("LLM list responses recovered by the line-based parser."),
	); err != nil {
		return nil, err
	}
	if met.MeetingsProcessed, err = m.Int64Counter("meeting.processed",
		metric.WithDescription("Total pipeline runs by status."),
	); err != nil {
		return nil, err
	}
	if met.MeetingsDeleted, err = m.Int64Counter("meeting.deleted",
		metric.WithDescription("Total meetings deleted."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsAnswered, err = m.Int64Counter("meeting.questions",
		metric.WithDescription("Total questions asked about stored meetings."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("meeting.tool.calls",
		metric.WithDescription("Total MCP tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveJobs, err = m.Int64UpDownCounter("meeting.active_jobs",
		metric.WithDescription("Number of pipeline runs in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("meeting.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status class."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// StatusOf maps an error to [StatusOK] or [StatusError].
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordParseFallback records that a list extraction for task needed the
// fallback parser.
func (m *Metrics) RecordParseFallback(ctx context.Context, task string) {
	m.ParseFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("task", task)))
}

// RecordLLM records the duration of one LLM completion for task.
func (m *Metrics) RecordLLM(ctx context.Context, task string, d time.Duration) {
	m.LLMDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("task", task)))
}

// RecordMeetingProcessed records the outcome and total latency of one
// pipeline run.
func (m *Metrics) RecordMeetingProcessed(ctx context.Context, status string, d time.Duration) {
	m.MeetingsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.PipelineDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordToolCall records a tool call counter increment with the standard
// attribute set and the handler latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolExecutionDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordHTTPRequest records the latency of one API request. Status codes are
// bucketed into classes ("2xx", "4xx", ...) to bound cardinality.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", route),
		attribute.String("status", strconv.Itoa(status/100)+"xx"),
	))
}
