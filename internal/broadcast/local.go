package broadcast

import (
	"context"
	"sync"
)

// LocalBus fans messages out to in-process subscribers. It backs the server
// when no cross-process transport is configured, and the WebSocket client
// uses one to share a single connection between subscribers.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int]chan Message
	nextID int
	closed bool
	done   chan struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs: make(map[int]chan Message),
		done: make(chan struct{}),
	}
}

func (b *LocalBus) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	publishedTotal.WithLabelValues("local").Inc()
	for _, ch := range b.subs {
		deliver("local", ch, msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Message, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.unsubscribe(id)
	}()

	return ch, nil
}

func (b *LocalBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Close closes every subscription. Publishing afterwards returns ErrClosed.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	return nil
}
