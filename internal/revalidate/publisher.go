// Package revalidate publishes cache-invalidation signals over Redis
// pub/sub so frontend instances can drop stale rendered views.
package revalidate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "careerpilot:revalidate"

// Publisher broadcasts changed view paths on a Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// Config configures the revalidation publisher.
type Config struct {
	Addr     string
	Password string
	Channel  string
}

// NewPublisher creates a pub/sub publisher for path invalidation.
func NewPublisher(cfg Config) (*Publisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("revalidate publisher requires redis addr")
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
		}),
		channel: channel,
	}, nil
}

// Publish broadcasts a changed path. Subscribers treat the payload as a
// view path to re-render; there is no acknowledgement.
func (p *Publisher) Publish(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("revalidate path is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, path).Err(); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
