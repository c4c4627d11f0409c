// Package realtime delivers raw auction event messages from the backend's
// push channel, over either a websocket or a NATS subject.
package realtime

import (
	"context"
	"time"
)

const (
	DefaultReconnectWait = 2 * time.Second
	DefaultPingInterval  = 30 * time.Second
	DefaultSubject       = "auction.events"
)

// Handler receives one raw wire message. Messages arrive in the order the
// transport delivered them and Handler is never called concurrently.
type Handler func(ctx context.Context, raw []byte)

// Hooks are lifecycle callbacks. Either may be nil.
type Hooks struct {
	// OnConnect runs after every successful connect or reconnect
	OnConnect func(ctx context.Context)
	// OnDisconnect runs when an established connection drops
	OnDisconnect func(err error)
}

func (h Hooks) connected(ctx context.Context) {
	if h.OnConnect != nil {
		h.OnConnect(ctx)
	}
}

func (h Hooks) disconnected(err error) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(err)
	}
}

// Channel is a reconnecting source of auction events
type Channel interface {
	// Run connects and delivers messages until ctx is cancelled
	Run(ctx context.Context) error
	// Connected reports whether the channel is currently live
	Connected() bool
}
