package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/campaign-briefing/internal/pipeline"
)

// SSE event names
const (
	eventProgress = "progress"
	eventError    = "error"
	eventComplete = "complete"
)

// SSEWriter writes numbered Server-Sent Events and flushes after each one.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
}

// NewSSEWriter sets the event-stream headers on w. It fails when w cannot flush.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher, nextID: 1}, nil
}

// WriteEvent sends data as one JSON-encoded event.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.nextID, event, payload); err != nil {
		return err
	}
	s.nextID++
	s.flusher.Flush()
	return nil
}

// WriteProgress sends a pipeline step without its content payload.
func (s *SSEWriter) WriteProgress(e pipeline.ProgressEvent) error {
	return s.WriteEvent(eventProgress, pipeline.ProgressEvent{Step: e.Step, Category: e.Category, Message: e.Message})
}

// WriteError sends the terminal error event.
func (s *SSEWriter) WriteError(message string) {
	_ = s.WriteEvent(eventError, map[string]string{"error": message})
}

// WriteComplete sends the terminal result event.
func (s *SSEWriter) WriteComplete(result any) {
	_ = s.WriteEvent(eventComplete, result)
}
