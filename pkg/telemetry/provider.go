package telemetry

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ProviderConfig holds configuration for the OTLP trace provider.
type ProviderConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint, e.g.
	// "http://localhost:4318". Required.
	Endpoint string

	// ServiceName is reported as service.name on every span.
	// Defaults to "msgshim".
	ServiceName string

	// Headers contains additional headers to send with trace exports.
	Headers map[string]string
}

// Provider owns the tracer provider and exporter lifecycle for the
// process. Construct with NewProvider at startup; Shutdown flushes any
// pending spans on exit.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	exporter       *otlptrace.Exporter
}

// NewProvider creates an OTLP/HTTP exporter and tracer provider from
// cfg and installs the provider as the global OpenTelemetry tracer
// provider, so GetTracer picks it up for every instrumented operation.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry: Endpoint is required")
	}
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: invalid Endpoint: %w", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "msgshim"
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(parsed.Host),
		otlptracehttp.WithHeaders(cfg.Headers),
	}
	if parsed.Scheme != "https" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tracerProvider: tp, exporter: exporter}, nil
}

// Tracer returns a tracer bound to this provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(TracerName)
}

// Shutdown flushes pending spans and releases the provider's resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: failed to shutdown tracer provider: %w", err)
		}
	}
	return nil
}
