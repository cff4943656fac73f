package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type pubSubClient interface {
	Publish(ctx context.Context, channel string, message any) (int64, error)
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
	CartChannel(deviceID string) string
}

// RedisBus relays notifications through redis pub/sub so every API instance
// serving the same device sees each mutation.
type RedisBus struct {
	client   pubSubClient
	instance string
}

// NewRedisBus builds a bus on client. instance tags outgoing messages for log correlation.
func NewRedisBus(client pubSubClient, instance string) *RedisBus {
	return &RedisBus{client: client, instance: instance}
}

func (b *RedisBus) Publish(ctx context.Context, deviceID string) error {
	if _, err := b.client.Publish(ctx, b.client.CartChannel(deviceID), b.instance); err != nil {
		return fmt.Errorf("publish cart change: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, deviceID string) (Subscription, error) {
	ps, err := b.client.Subscribe(ctx, b.client.CartChannel(deviceID))
	if err != nil {
		return nil, err
	}
	sub := &redisSubscription{ps: ps, ch: make(chan struct{}, 1), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	msgs := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case s.ch <- struct{}{}:
			default:
			}
		}
	}
}

func (s *redisSubscription) C() <-chan struct{} { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
