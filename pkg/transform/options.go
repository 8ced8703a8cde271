// Package transform converts between the two wire vocabularies:
// Anthropic Messages requests into OpenAI Responses requests, Responses
// objects and item lists back into Anthropic messages, and the batch
// conversion modes the CLI exposes.
package transform

// Options carries the small set of behavior flags that vary across
// call sites (the HTTP surface, the CLI's batch-convert command), so
// the conversion functions themselves stay pure and side-effect free.
type Options struct {
	// ImageURLObject renders an image content part's image_url as
	// {"url": "..."} instead of a bare string, for upstreams that
	// require the object form.
	ImageURLObject bool

	// Reasoning is deep-merged onto the outgoing Responses request's
	// reasoning field, e.g. from a model-map entry's extras.
	Reasoning map[string]any

	// KeepReasoning, when true, surfaces an OpenAI "reasoning" item with
	// no usable summary as a placeholder assistant text block instead of
	// dropping it silently.
	KeepReasoning bool

	// KeepReasoningSummary, when true, surfaces a reasoning item's
	// summary text as an Anthropic thinking block.
	KeepReasoningSummary bool

	// KeepUnknown, when true, renders content parts and output items of
	// an unrecognized type as a JSON-text fallback block instead of
	// dropping them.
	KeepUnknown bool
}
