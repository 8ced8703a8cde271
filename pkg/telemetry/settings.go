// Package telemetry provides OpenTelemetry integration for the proxy.
// It allows tracking and monitoring of request translation and of the
// non-streaming upstream Responses call with customizable spans and
// attributes; the streaming path records no span.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings configures telemetry for proxy operations (request
// translation and the non-streaming upstream call).
// Telemetry is disabled by default and must be explicitly enabled.
type Settings struct {
	// IsEnabled controls whether telemetry is active. Defaults to false.
	IsEnabled bool

	// FunctionID is an identifier for grouping telemetry data by operation.
	FunctionID string

	// Metadata contains additional key-value pairs to include in telemetry spans.
	Metadata map[string]attribute.Value

	// Tracer is a custom OpenTelemetry tracer. If nil, the global tracer will be used.
	Tracer trace.Tracer
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		IsEnabled: false,
		Metadata:  make(map[string]attribute.Value),
	}
}

// WithEnabled returns a copy of Settings with IsEnabled set to the given value.
func (s *Settings) WithEnabled(enabled bool) *Settings {
	copy := *s
	copy.IsEnabled = enabled
	return &copy
}

// WithFunctionID returns a copy of Settings with FunctionID set to the given value.
func (s *Settings) WithFunctionID(id string) *Settings {
	copy := *s
	copy.FunctionID = id
	return &copy
}
