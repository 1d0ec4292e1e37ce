package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lexcorpus/internal/domain/services"

	"github.com/redis/go-redis/v9"
)

// Redis pub/sub channels clients subscribe to.
const (
	ChannelDocuments    = "corpus:documents"
	ChannelReviewTables = "corpus:review_tables"
)

// ChannelFor maps an event type to its channel.
func ChannelFor(eventType string) string {
	if strings.HasPrefix(eventType, "review_table.") {
		return ChannelReviewTables
	}
	return ChannelDocuments
}

// RedisPublisher publishes events as JSON on Redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(redisURL string, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisPublisher{client: client, logger: logger}, nil
}

// NewRedisPublisherWithClient creates a publisher from an existing client
func NewRedisPublisherWithClient(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

// Publish sends the event on the channel for its type
func (p *RedisPublisher) Publish(ctx context.Context, event services.Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelFor(event.Type), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Client returns the underlying client so a Subscriber can share the connection pool
func (p *RedisPublisher) Client() *redis.Client {
	return p.client
}

// Close closes the underlying client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscriber streams published events back out of Redis.
type Subscriber struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSubscriber creates a subscriber over client
func NewSubscriber(client *redis.Client, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: client, logger: logger}
}

// Subscribe delivers events from channels until ctx is done. The returned
// channel is closed when the subscription ends.
func (s *Subscriber) Subscribe(ctx context.Context, channels ...string) (<-chan services.Event, error) {
	pubsub := s.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan services.Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event services.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NopPublisher drops every event. Used when REDIS_URL is not configured.
type NopPublisher struct{}

// Publish implements services.EventPublisher
func (NopPublisher) Publish(context.Context, services.Event) error { return nil }
