// Package sseio frames and unframes Server-Sent Events for both legs of
// the proxy: decoding the OpenAI Responses SSE stream into JSON event
// maps, and encoding Anthropic streaming events back into SSE text.
package sseio

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Decoder reads an OpenAI-style SSE byte stream and yields one decoded
// JSON object per event. It collects `data:` lines until a blank line,
// drops `data: [DONE]`, and skips events whose payload doesn't parse as
// a JSON object rather than failing the whole stream — a single
// malformed event must never take down the rest of the response.
type Decoder struct {
	scanner *bufio.Scanner
	dataBuf []string
	done    bool
}

// NewDecoder wraps r as an SSE decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next decoded JSON event object, io.EOF when the
// stream is exhausted, or a scanner error. Lines that aren't part of a
// recognized event (comments, non-"data:" fields) are ignored.
func (d *Decoder) Next() (map[string]any, error) {
	if d.done {
		return nil, io.EOF
	}
	for d.scanner.Scan() {
		line := strings.TrimRight(d.scanner.Text(), "\r")
		if line == "" {
			if len(d.dataBuf) == 0 {
				continue
			}
			ev, ok := d.flush()
			if ok {
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			d.dataBuf = append(d.dataBuf, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := d.scanner.Err(); err != nil {
		d.done = true
		return nil, err
	}
	// Flush a trailing buffer left by a stream that ended without a
	// final blank line.
	if len(d.dataBuf) > 0 {
		ev, ok := d.flush()
		d.done = true
		if ok {
			return ev, nil
		}
		return nil, io.EOF
	}
	d.done = true
	return nil, io.EOF
}

func (d *Decoder) flush() (map[string]any, bool) {
	payload := strings.TrimSpace(strings.Join(d.dataBuf, "\n"))
	d.dataBuf = nil
	if payload == "" || payload == "[DONE]" {
		return nil, false
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, false
	}
	return ev, true
}

// Encoder writes Anthropic streaming events as SSE text: an "event:"
// line carrying the event's "type" field followed by a "data:" line
// carrying the JSON payload and a blank line.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w as an SSE encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// marshaler is satisfied by anything with a custom MarshalJSON, which
// is how callers typically hand events to Write (see messages.Event).
type marshaler interface {
	MarshalJSON() ([]byte, error)
}

// Write encodes one event. ev must marshal to a JSON object carrying a
// "type" string field; events without one are silently skipped, since
// the Anthropic grammar has no anonymous event kind.
func (e *Encoder) Write(ev any) error {
	var raw []byte
	var err error
	if m, ok := ev.(marshaler); ok {
		raw, err = m.MarshalJSON()
	} else {
		raw, err = json.Marshal(ev)
	}
	if err != nil {
		return err
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Type == "" {
		return nil
	}

	if _, err := io.WriteString(e.w, "event: "+probe.Type+"\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, "data: "); err != nil {
		return err
	}
	if _, err := e.w.Write(raw); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n\n")
	return err
}

// Flush flushes the underlying writer if it supports flushing (e.g. an
// http.Flusher wrapped by the caller). Callers that need per-event
// flushing to the client should flush their own ResponseWriter after
// each Write; this helper exists for writers that merely buffer.
type flusher interface {
	Flush()
}

func (e *Encoder) Flush() {
	if f, ok := e.w.(flusher); ok {
		f.Flush()
	}
}
