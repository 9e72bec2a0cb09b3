package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Client is one registered websocket connection with its authenticated
// user identity.
type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub subscribes to the Redis event channel and fans events out to the
// websocket connections registered on this instance. Events addressed to a
// user reach only that user's connections; unaddressed events broadcast.
type Hub struct {
	redis   *redis.Client
	channel string
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub constructs the fan-out hub.
func NewHub(client *redis.Client, channel string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		redis:   client,
		channel: channel,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Run consumes the Redis subscription until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.redis.Subscribe(ctx, h.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("dropped malformed realtime event", zap.Error(err))
				continue
			}
			h.dispatch(event, []byte(msg.Payload))
		}
	}
}

// Register attaches a websocket connection and starts its pumps. The caller
// hands over ownership of the connection.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	client := &Client{UserID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go client.writePump(h)
	go client.readPump(h)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) dispatch(event models.Event, raw []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if event.UserID != "" && event.UserID != client.UserID {
			continue
		}
		select {
		case client.send <- raw:
		default:
			// Slow consumer, drop the event rather than block the hub.
			h.logger.Debug("dropped event for slow client", zap.String("user_id", client.UserID), zap.String("event", event.Name))
		}
	}
}

// ClientCount reports the number of active connections on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients only listen; inbound frames are consumed for control flow.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
