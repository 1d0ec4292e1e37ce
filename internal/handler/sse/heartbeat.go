package sse

import (
	"context"
	"log/slog"
	"time"
)

// Pinger is anything that can carry a keep-alive frame.
type Pinger interface {
	Ping() error
}

// Heartbeat pings p every interval until ctx is done or a ping fails.
// The returned channel closes when the heartbeat stops; a closed channel
// before ctx is done means the client went away.
func Heartbeat(ctx context.Context, p Pinger, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Ping(); err != nil {
					logger.Debug("heartbeat failed, closing stream", "error", err)
					return
				}
			}
		}
	}()

	return stopped
}
