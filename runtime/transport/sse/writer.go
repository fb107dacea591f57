// Package sse implements the Server-Sent Events wire grammar used to stream
// task lifecycle events to subscribers: the "event:"/"data:"/blank-line
// framing on the server side. The client-side reader, including the
// fallback that extracts an agent card from an HTML document, lives in
// runtime/client/streaming.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"goa.design/a2arun/runtime/stream"
)

// Writer streams stream.Events to an http.ResponseWriter using the SSE wire
// format, flushing after every event so subscribers see updates as they
// happen rather than buffered.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for SSE streaming: it sets the required response
// headers and returns a Writer, or ok=false if the ResponseWriter does not
// support flushing (http.Flusher), which this transport requires.
func NewWriter(w http.ResponseWriter) (*Writer, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disables response buffering in nginx and similar reverse proxies,
	// which would otherwise hold the whole stream until it closes.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, true
}

// WriteEvent serializes event as JSON and writes it as one SSE frame:
//
//	event: <type>
//	data: <json>
//	<blank line>
func (sw *Writer) WriteEvent(event stream.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
