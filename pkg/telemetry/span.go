package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOptions configures a telemetry span
type SpanOptions struct {
	// Name is the operation name for the span
	Name string

	// Attributes are key-value pairs attached to the span
	Attributes []attribute.KeyValue

	// EndWhenDone controls whether the span should be ended automatically when the function returns
	EndWhenDone bool
}

// RecordSpan creates and executes a telemetry span for an operation.
// The span is automatically ended when the function completes, unless EndWhenDone is false.
// Errors are automatically recorded on the span.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name,
		trace.WithAttributes(opts.Attributes...),
	)

	result, err := fn(ctx, span)

	if err != nil {
		RecordErrorOnSpan(span, err)
		span.End()
		var zero T
		return zero, err
	}

	if opts.EndWhenDone {
		span.End()
	}

	return result, nil
}

// RecordErrorOnSpan records an error on a span and sets the span status to error.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetBaseAttributes returns common attributes for a proxy operation
// span: the upstream provider/model it concerns, plus any configured
// telemetry metadata and non-credential request headers.
func GetBaseAttributes(
	provider string,
	modelID string,
	settings *Settings,
	headers map[string]string,
) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("proxy.upstream.provider", provider),
		attribute.String("proxy.upstream.model", modelID),
	}

	// Add telemetry metadata
	if settings != nil {
		if settings.FunctionID != "" {
			attrs = append(attrs, attribute.String("proxy.telemetry.functionId", settings.FunctionID))
		}

		for key, value := range settings.Metadata {
			attrs = append(attrs, attribute.KeyValue{
				Key:   attribute.Key("proxy.telemetry.metadata." + key),
				Value: value,
			})
		}
	}

	// Add request headers (but avoid credential-bearing ones)
	for key, value := range headers {
		lower := strings.ToLower(key)
		if lower == "authorization" || lower == "x-api-key" || lower == "api-key" || lower == "x-openai-api-key" {
			continue
		}
		attrs = append(attrs, attribute.String("proxy.request.headers."+key, value))
	}

	return attrs
}
