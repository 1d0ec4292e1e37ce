package sse

import "time"

// Config holds configuration for event streams
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings so idle
	// proxies keep the connection open
	KeepAliveInterval time.Duration

	// RetryAfter is sent as the SSE retry field, telling clients how long to
	// wait before reconnecting
	RetryAfter time.Duration
}

// DefaultConfig returns the default SSE configuration
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 15 * time.Second,
		RetryAfter:        3 * time.Second,
	}
}
