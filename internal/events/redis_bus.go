package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus shares events between processes over a redis channel. Messages
// received on the channel, including the ones this process published, are
// fanned out to local subscribers.
type RedisBus struct {
	client  *redis.Client
	channel string
	local   *LocalBus
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBus(client *redis.Client, channel string, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		local:   NewLocalBus(),
		logger:  logger,
	}
}

// Start subscribes to the channel and begins delivering events.
func (b *RedisBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return errors.New("redis bus already started")
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	b.pubsub = pubsub
	b.done = make(chan struct{})
	go b.loop(pubsub.Channel(), b.done)
	return nil
}

func (b *RedisBus) loop(messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		_ = b.local.Publish(context.Background(), ev)
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(h Handler) func() {
	return b.local.Subscribe(h)
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
