package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Stream writes server-sent events to one client.
// Event and heartbeat writes are serialised so frames never interleave.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	id      string
	seq     int
}

// Open sends the event-stream headers and returns a stream for w.
func Open(w http.ResponseWriter, id string) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher, id: id}, nil
}

// ID identifies the connection in logs
func (s *Stream) ID() string {
	return s.id
}

// Retry tells the client how long to wait before reconnecting
func (s *Stream) Retry(after time.Duration) error {
	return s.write(fmt.Sprintf("retry: %d\n\n", after.Milliseconds()))
}

// Send writes payload as a JSON event. Events are numbered from 1 in send order.
func (s *Stream) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	frame := "id: " + strconv.Itoa(s.seq) + "\nevent: " + event + "\ndata: " + string(data) + "\n\n"
	return s.writeLocked(frame)
}

// Ping writes a comment line; clients ignore it but proxies see traffic.
func (s *Stream) Ping() error {
	return s.write(": keepalive\n\n")
}

func (s *Stream) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(frame)
}

func (s *Stream) writeLocked(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return fmt.Errorf("write to stream %s: %w", s.id, err)
	}
	s.flusher.Flush()
	return nil
}
