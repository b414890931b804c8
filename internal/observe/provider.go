package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when [ProviderConfig.ServiceName] is empty.
const DefaultServiceName = "meeting-assistant"

// ProviderConfig configures [Setup].
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string

	// Registerer receives the Prometheus collector backing the meter
	// provider. Defaults to [prometheus.DefaultRegisterer], which is what
	// promhttp.Handler serves.
	Registerer prometheus.Registerer

	// TraceExporter receives finished spans. When nil spans are sampled and
	// kept in-process only, which is enough for trace IDs in logs.
	TraceExporter sdktrace.SpanExporter
}

// Telemetry owns the SDK providers installed by [Setup].
type Telemetry struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

// Setup builds the meter and tracer providers for the service and registers
// them, along with the W3C trace-context propagator, as the OTel globals.
// Call [Telemetry.Shutdown] before exit to flush exporters.
func Setup(ctx context.Context, cfg ProviderConfig) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	exp, err := promexporter.New(promexporter.WithRegisterer(cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}

	t := &Telemetry{
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exp)),
		TracerProvider: sdktrace.NewTracerProvider(tpOpts...),
	}
	otel.SetMeterProvider(t.MeterProvider)
	otel.SetTracerProvider(t.TracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return t, nil
}

// Shutdown flushes and stops both providers. Errors from each are joined.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.MeterProvider.Shutdown(ctx),
	)
}
