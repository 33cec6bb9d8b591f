package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay shares events between server processes over Redis Pub/Sub.
type RedisRelay struct {
	log     *zap.Logger
	client  *redis.Client
	channel string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisRelay connects and pings Redis.
func NewRedisRelay(log *zap.Logger, opts *redis.Options, channel string) (*RedisRelay, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisRelay{
		log:     log.With(zap.String("component", "redis-relay")),
		client:  client,
		channel: channel,
	}, nil
}

// Start subscribes and feeds remote events into hub until Stop.
func (rr *RedisRelay) Start(hub *Hub) error {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := rr.client.Subscribe(ctx, rr.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", rr.channel, err)
	}

	rr.mu.Lock()
	rr.cancel = cancel
	rr.done = make(chan struct{})
	done := rr.done
	rr.mu.Unlock()

	hub.SetRelay(rr)
	rr.log.Info("subscribed", zap.String("channel", rr.channel))

	go func() {
		defer close(done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					rr.log.Warn("decode relay message", zap.Error(err))
					continue
				}
				hub.deliverRemote(ev)
			}
		}
	}()
	return nil
}

// Publish sends ev to every subscribed process, including this one.
func (rr *RedisRelay) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rr.client.Publish(ctx, rr.channel, payload).Err()
}

// Stop ends the subscription and closes the client.
func (rr *RedisRelay) Stop() error {
	rr.mu.Lock()
	cancel, done := rr.cancel, rr.done
	rr.cancel = nil
	rr.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return rr.client.Close()
}
