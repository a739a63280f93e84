package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel carries result_ready events between instances.
const DefaultChannel = "results:ready"

// PubSubNotifier publishes result messages on a Redis channel so that
// whichever instance holds the player's socket can push them.
type PubSubNotifier struct {
	redis   *redis.Client
	channel string
}

var _ Notifier = (*PubSubNotifier)(nil)

// NewPubSubNotifier builds a Redis Pub/Sub notifier.
func NewPubSubNotifier(client *redis.Client, channel string) *PubSubNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PubSubNotifier{redis: client, channel: channel}
}

// Notify implements Notifier.
func (n *PubSubNotifier) Notify(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode result event: %w", err)
	}
	if err := n.redis.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish result event: %w", err)
	}
	return nil
}
