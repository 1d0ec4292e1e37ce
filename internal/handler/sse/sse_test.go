package sse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStream(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, "stream-1")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Retry(3 * time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Send("document.status", map[string]string{"status": "ingested"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(); err != nil {
		t.Fatal(err)
	}
	if err := s.Send("document.status", map[string]string{"status": "failed"}); err != nil {
		t.Fatal(err)
	}

	want := "retry: 3000\n\n" +
		"id: 1\nevent: document.status\ndata: {\"status\":\"ingested\"}\n\n" +
		": keepalive\n\n" +
		"id: 2\nevent: document.status\ndata: {\"status\":\"failed\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Code != http.StatusOK || !rec.Flushed {
		t.Errorf("code = %d, flushed = %v", rec.Code, rec.Flushed)
	}
	if s.ID() != "stream-1" {
		t.Errorf("ID() = %q", s.ID())
	}
}

type noFlush struct{ http.ResponseWriter }

func TestOpen_RequiresFlusher(t *testing.T) {
	_, err := Open(noFlush{httptest.NewRecorder()}, "x")
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Errorf("err = %v, want ErrStreamingUnsupported", err)
	}
}

type countingPinger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPinger) Ping() error {
	c.calls.Add(1)
	return c.err
}

func TestHeartbeat(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stops on failed ping", func(t *testing.T) {
		p := &countingPinger{err: errors.New("broken pipe")}
		select {
		case <-Heartbeat(context.Background(), p, time.Millisecond, logger):
		case <-time.After(time.Second):
			t.Fatal("heartbeat did not stop after a failed ping")
		}
		if p.calls.Load() != 1 {
			t.Errorf("Ping called %d times, want 1", p.calls.Load())
		}
	})

	t.Run("stops with context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stopped := Heartbeat(ctx, &countingPinger{}, time.Hour, logger)
		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("heartbeat outlived its context")
		}
	})
}
