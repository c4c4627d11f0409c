package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MessageType tags a frame pushed to UI clients
type MessageType string

const (
	MessageSnapshot     MessageType = "snapshot"
	MessageNotification MessageType = "notification"
)

// Message is the frame written to UI websockets
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// HubConfig holds configuration for UI websocket connections
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns default UI websocket configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      16,
		CheckOrigin: func(r *http.Request) bool {
			// the bridge only listens locally
			return true
		},
	}
}

// Hub pushes snapshots and notifications to every connected UI client
type Hub struct {
	session  Session
	upgrader websocket.Upgrader
	config   HubConfig

	mu          sync.RWMutex
	connections map[*client]struct{}
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	connectedAt time.Time

	mu     sync.Mutex
	closed bool
}

// NewHub creates a hub over session
func NewHub(session Session, config HubConfig) *Hub {
	return &Hub{
		session: session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		connections: make(map[*client]struct{}),
	}
}

// Run forwards store changes and notifications until ctx ends
func (h *Hub) Run(ctx context.Context) {
	changes, cancel := h.session.Subscribe()
	defer cancel()

	log.Info().Msg("viewer hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Info().Msg("viewer hub shutting down")
			return
		case _, ok := <-changes:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(Message{Type: MessageSnapshot, Data: buildSnapshot(h.session)})
		case n := <-h.session.Notifications():
			h.broadcast(Message{Type: MessageNotification, Data: n})
		}
	}
}

// HandleConnection upgrades a UI client and sends it the current snapshot
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Error().Err(err).Msg("failed to upgrade viewer websocket")
		return
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, h.config.SendBuffer),
		hub:         h,
		connectedAt: time.Now(),
	}

	h.register(c)
	go c.writePump()
	go c.readPump()

	if data, err := encode(Message{Type: MessageSnapshot, Data: buildSnapshot(h.session)}); err == nil {
		c.enqueue(data)
	}

	log.Info().Str("connection_id", c.id).Msg("viewer websocket connected")
}

// Count returns how many UI clients are connected
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.connections[c]
	delete(h.connections, c)
	h.mu.Unlock()

	if ok {
		c.close()
		log.Info().
			Str("connection_id", c.id).
			Dur("connected_for", time.Since(c.connectedAt)).
			Msg("viewer websocket disconnected")
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := encode(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal viewer message")
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.connections))
	for c := range h.connections {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}

	log.Debug().
		Str("message_type", string(msg.Type)).
		Int("connections", len(targets)).
		Msg("viewer message broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.connections))
	for c := range h.connections {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.unregister(c)
	}
}

func encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}
	return data, nil
}

// enqueue drops slow clients rather than blocking the hub
func (c *client) enqueue(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var full bool
	select {
	case c.send <- data:
	default:
		full = true
	}
	c.mu.Unlock()

	if full {
		log.Warn().Str("connection_id", c.id).Msg("viewer send buffer full, closing connection")
		c.hub.unregister(c)
		c.conn.Close()
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write viewer message")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to process pongs and notice closes
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("unexpected viewer websocket close")
			}
			return
		}
	}
}
