package realtime

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/errors"
	"docflow/internal/middleware"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "docflow",
		Subsystem: "realtime",
		Name:      "connections",
		Help:      "Open realtime connections.",
	})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Subsystem: "realtime",
		Name:      "rejected_messages_total",
		Help:      "Inbound messages not relayed, by reason.",
	}, []string{"reason"})
)

// Hub relays document updates between connected clients. Every connection
// is bound to the organization in its session token: it only receives that
// organization's messages and may only publish for it.
type Hub struct {
	bus      broadcast.Bus
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHub(bus broadcast.Bus, allowedOrigin string, log zerolog.Logger) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				return origin == "" || allowedOrigin == "" || origin == allowedOrigin
			},
		},
		log: log,
	}
}

// Serve handles GET /ws. It must run behind the auth middleware.
func (h *Hub) Serve(c *gin.Context) {
	organization, ok := middleware.Organization(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	// subscribe before upgrading so nothing published after the handshake
	// completes is missed
	ctx, cancel := context.WithCancel(context.Background())
	messages, err := h.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		c.Error(errors.Unavailable("Realtime updates unavailable", err))
		c.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the response
		cancel()
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &client{
		hub:          h,
		conn:         conn,
		organization: organization,
		email:        c.GetString(middleware.ContextEmail),
		log:          h.log.With().Str("organization", organization).Logger(),
	}

	connectionsGauge.Inc()
	client.log.Debug().Str("email", client.email).Msg("realtime client connected")

	go func() {
		client.writePump(messages)
		cancel()
	}()
	client.readPump(ctx)
	cancel()
	connectionsGauge.Dec()
	client.log.Debug().Str("email", client.email).Msg("realtime client disconnected")
}

type client struct {
	hub          *Hub
	conn         *websocket.Conn
	organization string
	email        string
	log          zerolog.Logger
}

// readPump publishes inbound messages until the connection fails
func (c *client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg broadcast.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			rejectedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		if err := msg.Validate(); err != nil {
			rejectedTotal.WithLabelValues("invalid").Inc()
			continue
		}
		if msg.Data.Organization != c.organization {
			rejectedTotal.WithLabelValues("organization").Inc()
			c.log.Warn().Str("email", c.email).Str("target", msg.Data.Organization).
				Msg("dropping message for another organization")
			continue
		}
		if err := c.hub.bus.Publish(ctx, msg); err != nil {
			c.log.Warn().Err(err).Msg("relaying message failed")
		}
	}
}

// writePump sends this organization's messages and keeps the connection
// alive with pings. It returns when messages closes or a write fails.
func (c *client) writePump(messages <-chan broadcast.Message) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-messages:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if msg.Data.Organization != c.organization {
				continue
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
