package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus publishes on a redis pub/sub channel so every server process
// sees every message.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewRedisBus does not take ownership of client
func NewRedisBus(client *redis.Client, channel string, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	if b.isClosed() {
		return ErrClosed
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return err
	}
	publishedTotal.WithLabelValues("redis").Inc()
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}

	ps := b.client.Subscribe(ctx, b.channel)
	// wait for the subscription to be confirmed so no publish after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Message, subscriberBuffer)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				receive("redis", []byte(m.Payload), out, b.log)
			}
		}
	}()

	return out, nil
}

func (b *RedisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close ends every subscription and waits for them to stop
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
