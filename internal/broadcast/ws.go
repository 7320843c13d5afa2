package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// WSBus is the client side of the realtime hub. Every message published on
// it is sent to the server, and every message the server relays is fanned
// out to local subscribers.
type WSBus struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	local   *LocalBus
	log     zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// DialWS connects to the hub at url (ws:// or wss://) with a session token
func DialWS(ctx context.Context, url, token string, log zerolog.Logger) (*WSBus, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	b := &WSBus{
		conn:  conn,
		local: NewLocalBus(),
		log:   log,
		done:  make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

func (b *WSBus) readLoop() {
	defer close(b.done)
	defer b.local.Close()

	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Debug().Err(err).Msg("realtime connection closed")
			}
			return
		}
		msg, err := decode(raw)
		if err != nil {
			droppedTotal.WithLabelValues("ws", "invalid").Inc()
			b.log.Debug().Err(err).Msg("skipping invalid broadcast frame")
			continue
		}
		if err := b.local.Publish(context.Background(), msg); err != nil {
			return
		}
	}
}

func (b *WSBus) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := b.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return err
	}
	publishedTotal.WithLabelValues("ws").Inc()
	return nil
}

func (b *WSBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	return b.local.Subscribe(ctx)
}

// Done is closed when the connection to the hub is lost or closed
func (b *WSBus) Done() <-chan struct{} {
	return b.done
}

func (b *WSBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.writeMu.Lock()
		_ = b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		b.writeMu.Unlock()

		err = b.conn.Close()
		<-b.done
	})
	return err
}
