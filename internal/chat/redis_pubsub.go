package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "event-room:"
	publishTimeout = 5 * time.Second
)

// RedisPubSub implements PubSub on Redis pub/sub so multiple server instances
// fan out the same room traffic.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis bridge for event rooms.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

func channelFor(eventID int64) string {
	return channelPrefix + strconv.FormatInt(eventID, 10)
}

// Publish sends a payload to the event's Redis channel.
func (r *RedisPubSub) Publish(eventID int64, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelFor(eventID), payload).Err()
}

// Subscribe subscribes to an event's Redis channel and calls handler for each
// payload. Returns a cancel function to stop the subscription.
func (r *RedisPubSub) Subscribe(eventID int64, handler func(payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channelFor(eventID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
