package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "kidship:live:"

func InitRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// RedisBroker fans topics out across service instances over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(topic string, payload []byte) error {
	return b.client.Publish(context.Background(), channelPrefix+topic, payload).Err()
}

func (b *RedisBroker) Subscribe(topic string, h Handler) *Subscription {
	pubsub := b.client.Subscribe(context.Background(), channelPrefix+topic)

	go func() {
		for msg := range pubsub.Channel() {
			h([]byte(msg.Payload))
			slog.Debug("pubsub message", "topic", topic)
		}
	}()

	return NewSubscription(func() {
		if err := pubsub.Close(); err != nil {
			slog.Error("failed to close pubsub", "topic", topic, "error", err)
		}
	})
}
