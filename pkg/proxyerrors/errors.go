// Package proxyerrors defines the error taxonomy used across the proxy
// to map failures onto HTTP status codes at the north-facing surface.
package proxyerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a ProxyError for status-code mapping.
type Kind string

const (
	// KindInvalidInput covers a malformed or incomplete request body
	// from the Anthropic-shaped caller. Maps to 400.
	KindInvalidInput Kind = "invalid-input"

	// KindMissingCredentials covers a missing upstream API key, either
	// from configuration or from the per-request override headers.
	// Maps to 500: the proxy is misconfigured, not the caller.
	KindMissingCredentials Kind = "missing-credentials"

	// KindUpstreamTimeout covers the upstream Responses call exceeding
	// its deadline. Maps to 504.
	KindUpstreamTimeout Kind = "upstream-timeout"

	// KindUpstreamConnection covers a transport-level failure reaching
	// the upstream (DNS, refused connection, TLS). Maps to 502.
	KindUpstreamConnection Kind = "upstream-connection"

	// KindUpstreamStatus covers the upstream responding with a status of
	// 400 or above; the proxy passes that status through verbatim.
	KindUpstreamStatus Kind = "upstream-status"

	// KindUpstreamStreamNoResponse covers an upstream SSE stream that
	// ended without ever emitting a response.completed/incomplete/
	// failed event carrying the final response object. Maps to 502.
	KindUpstreamStreamNoResponse Kind = "upstream-stream-no-response"
)

// ProxyError is the single error type the HTTP surface inspects to
// decide a response status and body. Everything else (malformed SSE
// events, unknown tool-call shapes, out-of-order tool deltas) is handled
// by silently dropping or buffering at the point of occurrence and never
// reaches this type.
type ProxyError struct {
	Kind Kind

	// StatusCode is only set (and only consulted) for KindUpstreamStatus,
	// where the proxy must mirror the upstream's exact status.
	StatusCode int

	Message string
	Cause   error
}

func (e *ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(message string, cause error) *ProxyError {
	return &ProxyError{Kind: KindInvalidInput, Message: message, Cause: cause}
}

// MissingCredentials builds a KindMissingCredentials error.
func MissingCredentials(message string) *ProxyError {
	return &ProxyError{Kind: KindMissingCredentials, Message: message}
}

// UpstreamTimeout builds a KindUpstreamTimeout error.
func UpstreamTimeout(cause error) *ProxyError {
	return &ProxyError{Kind: KindUpstreamTimeout, Message: "upstream timeout", Cause: cause}
}

// UpstreamConnection builds a KindUpstreamConnection error.
func UpstreamConnection(cause error) *ProxyError {
	return &ProxyError{Kind: KindUpstreamConnection, Message: "upstream connection error", Cause: cause}
}

// UpstreamStatus builds a KindUpstreamStatus error carrying the
// upstream's own status code and body, to be mirrored verbatim.
func UpstreamStatus(statusCode int, body string) *ProxyError {
	return &ProxyError{Kind: KindUpstreamStatus, StatusCode: statusCode, Message: body}
}

// UpstreamStreamNoResponse builds a KindUpstreamStreamNoResponse error.
func UpstreamStreamNoResponse() *ProxyError {
	return &ProxyError{Kind: KindUpstreamStreamNoResponse, Message: "upstream stream did not include a response object"}
}

// As is a typed convenience wrapper over errors.As for extracting a
// *ProxyError from a wrapped error chain.
func As(err error) (*ProxyError, bool) {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// StatusCodeFor derives the HTTP status code the north-facing surface
// should return for err, defaulting to 500 for anything that isn't a
// *ProxyError (an unexpected internal failure).
func StatusCodeFor(err error) int {
	pe, ok := As(err)
	if !ok {
		return 500
	}
	switch pe.Kind {
	case KindInvalidInput:
		return 400
	case KindMissingCredentials:
		return 500
	case KindUpstreamTimeout:
		return 504
	case KindUpstreamConnection:
		return 502
	case KindUpstreamStreamNoResponse:
		return 502
	case KindUpstreamStatus:
		return pe.StatusCode
	default:
		return 500
	}
}
