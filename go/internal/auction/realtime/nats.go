package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS transport
type NATSConfig struct {
	URL           string
	Subject       string
	Token         string
	Stream        string // when set, read through a JetStream ordered consumer
	ReconnectWait time.Duration
	MaxReconnects int
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       DefaultSubject,
		ReconnectWait: DefaultReconnectWait,
		MaxReconnects: -1, // Infinite
	}
}

type connectFunc func(url string, opts ...nats.Option) (*nats.Conn, error)

// NATSChannel reads auction events published on a NATS subject. Once
// connected the NATS client handles reconnects; a failed first connect, a
// failed subscribe or a closed connection is retried after ReconnectWait.
// The hooks fire on every transition.
type NATSChannel struct {
	config  NATSConfig
	handler Handler
	hooks   Hooks
	clock   clockwork.Clock
	connect connectFunc

	connected atomic.Bool
}

// NewNATSChannel creates a NATS channel
func NewNATSChannel(config NATSConfig, handler Handler, hooks Hooks, clock clockwork.Clock) *NATSChannel {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = DefaultReconnectWait
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &NATSChannel{
		config:  config,
		handler: handler,
		hooks:   hooks,
		clock:   clock,
		connect: nats.Connect,
	}
}

// Connected reports whether the NATS connection is up
func (c *NATSChannel) Connected() bool {
	return c.connected.Load()
}

func (c *NATSChannel) options(ctx context.Context, closed chan<- struct{}) []nats.Option {
	opts := []nats.Option{
		nats.Name("templeauction-viewer"),
		nats.MaxReconnects(c.config.MaxReconnects),
		nats.ReconnectWait(c.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			c.connected.Store(false)
			log.Error().Err(err).Msg("NATS disconnected")
			c.hooks.disconnected(err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.connected.Store(true)
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			c.hooks.connected(ctx)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			close(closed)
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	if c.config.Token != "" {
		opts = append(opts, nats.Token(c.config.Token))
	}
	return opts
}

// Run connects and subscribes, retrying until it succeeds, and blocks until
// ctx is cancelled. It returns nil once ctx ends.
func (c *NATSChannel) Run(ctx context.Context) error {
	log.Info().
		Str("url", c.config.URL).
		Str("subject", c.config.Subject).
		Msg("starting auction NATS channel")

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("auction NATS channel shutting down")
			return nil
		}
		log.Warn().
			Err(err).
			Dur("retry_in", c.config.ReconnectWait).
			Msg("auction NATS channel unavailable")

		select {
		case <-ctx.Done():
			log.Info().Msg("auction NATS channel shutting down")
			return nil
		case <-c.clock.After(c.config.ReconnectWait):
		}
	}
}

// session runs one NATS connection from connect until ctx ends or the
// client gives up reconnecting
func (c *NATSChannel) session(ctx context.Context) error {
	closed := make(chan struct{})
	nc, err := c.connect(c.config.URL, c.options(ctx, closed)...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	stop, err := c.subscribe(ctx, nc)
	if err != nil {
		return err
	}
	defer stop()

	c.connected.Store(true)
	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("subject", c.config.Subject).
		Str("stream", c.config.Stream).
		Msg("auction NATS channel connected")
	c.hooks.connected(ctx)

	defer c.connected.Store(false)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-closed:
		return errors.New("NATS connection closed")
	}
}

func (c *NATSChannel) subscribe(ctx context.Context, nc *nats.Conn) (func(), error) {
	if c.config.Stream == "" {
		// Callbacks for one subscription are delivered serially.
		sub, err := nc.Subscribe(c.config.Subject, func(msg *nats.Msg) {
			c.handler(ctx, msg.Data)
		})
		if err != nil {
			return nil, fmt.Errorf("subscribe to %s: %w", c.config.Subject, err)
		}
		return func() {
			if err := sub.Unsubscribe(); err != nil {
				log.Debug().Err(err).Msg("failed to unsubscribe")
			}
		}, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	consumer, err := js.OrderedConsumer(ctx, c.config.Stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{c.config.Subject},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create ordered consumer on %s: %w", c.config.Stream, err)
	}
	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handler(ctx, msg.Data())
	})
	if err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}
	return consumeCtx.Stop, nil
}
