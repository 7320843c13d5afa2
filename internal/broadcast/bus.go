package broadcast

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Bus is a fire-and-forget publish/subscribe channel for document updates.
// There is no acknowledgement, retry or persistence: a subscriber that is
// not listening when a message is published never sees it.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe returns a channel that is closed when ctx is done or the
	// bus is closed.
	Subscribe(ctx context.Context) (<-chan Message, error)
	Close() error
}

var ErrClosed = errors.New("broadcast: bus closed")

// subscriberBuffer is how many undelivered messages a subscriber may lag
// behind before new ones are dropped for it
const subscriberBuffer = 64

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Subsystem: "broadcast",
		Name:      "published_total",
		Help:      "Messages published, by transport.",
	}, []string{"transport"})

	deliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Subsystem: "broadcast",
		Name:      "delivered_total",
		Help:      "Messages handed to subscribers, by transport.",
	}, []string{"transport"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Subsystem: "broadcast",
		Name:      "dropped_total",
		Help:      "Messages dropped because a subscriber was full or the payload was invalid, by transport.",
	}, []string{"transport", "reason"})
)

// decode turns a raw transport frame into a validated message
func decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, err
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// deliver hands msg to out without blocking
func deliver(transport string, out chan<- Message, msg Message) bool {
	select {
	case out <- msg:
		deliveredTotal.WithLabelValues(transport).Inc()
		return true
	default:
		droppedTotal.WithLabelValues(transport, "full").Inc()
		return false
	}
}

// receive decodes one raw transport frame and hands it to out. Invalid
// frames are logged and skipped.
func receive(transport string, raw []byte, out chan<- Message, log zerolog.Logger) {
	msg, err := decode(raw)
	if err != nil {
		droppedTotal.WithLabelValues(transport, "invalid").Inc()
		log.Debug().Err(err).Str("transport", transport).Msg("skipping invalid broadcast frame")
		return
	}
	deliver(transport, out, msg)
}
