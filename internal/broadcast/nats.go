package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const flushTimeout = 2 * time.Second

// NATSBus publishes on a NATS subject
type NATSBus struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// ConnectNATS dials url and keeps reconnecting in the background
func ConnectNATS(url string, log zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("docflow"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
}

// NewNATSBus does not take ownership of conn
func NewNATSBus(conn *nats.Conn, subject string, log zerolog.Logger) *NATSBus {
	return &NATSBus{
		conn:    conn,
		subject: subject,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (b *NATSBus) Publish(ctx context.Context, msg Message) error {
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
	if err := b.conn.Publish(b.subject, raw); err != nil {
		return err
	}
	publishedTotal.WithLabelValues("nats").Inc()
	return nil
}

func (b *NATSBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}

	frames := make(chan *nats.Msg, subscriberBuffer)
	sub, err := b.conn.ChanSubscribe(b.subject, frames)
	if err != nil {
		return nil, err
	}
	// make sure the server knows about the subscription before returning
	if err := b.conn.FlushTimeout(flushTimeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	out := make(chan Message, subscriberBuffer)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
				b.log.Debug().Err(err).Msg("nats unsubscribe failed")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m := <-frames:
				receive("nats", m.Data, out, b.log)
			}
		}
	}()

	return out, nil
}

func (b *NATSBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *NATSBus) Close() error {
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
