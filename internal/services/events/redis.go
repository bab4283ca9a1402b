package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher sends events over Redis pub/sub on channel <prefix>:<meetingID>
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisPublisher connects lazily to addr
func NewRedisPublisher(addr, prefix string) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		owned:  true,
	}
}

// NewRedisPublisherWithClient shares an existing client; Close leaves it open
func NewRedisPublisherWithClient(client redis.UniversalClient, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel is where events of a meeting are published
func (p *RedisPublisher) Channel(meetingID string) string {
	if p.prefix == "" {
		return meetingID
	}
	return p.prefix + ":" + meetingID
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.encode()
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(event.MeetingID), data).Err(); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}
