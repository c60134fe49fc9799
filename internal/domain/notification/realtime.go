package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RealtimePublisher delivers notifications to connected clients.
type RealtimePublisher interface {
	Publish(ctx context.Context, n *Notification) error
}

// ChannelFor is the pub/sub channel a user's clients subscribe to.
func ChannelFor(userID uuid.UUID) string {
	return "bingo:notifications:" + userID.String()
}

// RedisPublisher publishes notifications with PUBLISH on per-user channels.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, n *Notification) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type": "notification:new",
		"data": n,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return p.client.Publish(ctx, ChannelFor(n.UserID), payload).Err()
}
