package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"anoa.com/polychat/internal/logging"
	"github.com/redis/go-redis/v9"
)

// RedisBroker carries changes over redis pub/sub so every server instance
// sees writes made by the others.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, change.Topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", change.Topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan Change, func(), error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	log := logging.Component("realtime")
	out := make(chan Change, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Warn().Err(err).Str("topic", topic).Msg("dropping malformed change")
					continue
				}
				select {
				case out <- change:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return out, cancel, nil
}
