package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// WebSocketConfig holds configuration for the backend websocket
type WebSocketConfig struct {
	URL            string
	Token          string
	ReconnectWait  time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns default websocket configuration for url
func DefaultWebSocketConfig(url string) WebSocketConfig {
	return WebSocketConfig{
		URL:            url,
		ReconnectWait:  DefaultReconnectWait,
		PingInterval:   DefaultPingInterval,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// WebSocketChannel reads auction events from the backend websocket and
// reconnects after ReconnectWait whenever the connection drops.
type WebSocketChannel struct {
	config  WebSocketConfig
	handler Handler
	hooks   Hooks
	clock   clockwork.Clock
	dialer  *websocket.Dialer

	connected atomic.Bool
}

// NewWebSocketChannel creates a websocket channel
func NewWebSocketChannel(config WebSocketConfig, handler Handler, hooks Hooks, clock clockwork.Clock) *WebSocketChannel {
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = DefaultReconnectWait
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WebSocketChannel{
		config:  config,
		handler: handler,
		hooks:   hooks,
		clock:   clock,
		dialer:  websocket.DefaultDialer,
	}
}

// Connected reports whether a websocket is currently open
func (c *WebSocketChannel) Connected() bool {
	return c.connected.Load()
}

// Run dials, reads until the connection drops, waits and dials again.
// It returns nil once ctx is cancelled.
func (c *WebSocketChannel) Run(ctx context.Context) error {
	log.Info().Str("url", c.config.URL).Msg("starting auction websocket channel")

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("auction websocket channel shutting down")
			return nil
		}
		log.Warn().
			Err(err).
			Dur("retry_in", c.config.ReconnectWait).
			Msg("auction websocket disconnected")

		select {
		case <-ctx.Done():
			log.Info().Msg("auction websocket channel shutting down")
			return nil
		case <-c.clock.After(c.config.ReconnectWait):
		}
	}
}

// session runs one connection from dial to drop
func (c *WebSocketChannel) session(ctx context.Context) error {
	header := http.Header{}
	if c.config.Token != "" {
		header.Set("Authorization", "Bearer "+c.config.Token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to dial auction websocket: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("failed to dial auction websocket: %w", err)
	}
	defer conn.Close()

	c.connected.Store(true)
	log.Info().Str("url", c.config.URL).Msg("auction websocket connected")
	c.hooks.connected(ctx)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingPump(ctx, conn, done)
	}()

	err = c.readPump(ctx, conn)

	c.connected.Store(false)
	close(done)
	wg.Wait()
	c.hooks.disconnected(err)
	return err
}

// readPump delivers messages until the connection fails
func (c *WebSocketChannel) readPump(ctx context.Context, conn *websocket.Conn) error {
	readTimeout := 2 * c.config.PingInterval
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("auction websocket closed by server")
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.handler(ctx, message)
	}
}

// pingPump keeps the connection alive and closes it when ctx ends
func (c *WebSocketChannel) pingPump(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			deadline := time.Now().Add(c.config.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
				log.Debug().Err(err).Msg("failed to send websocket close")
			}
			conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Msg("failed to send websocket ping")
				conn.Close()
				return
			}
		}
	}
}
