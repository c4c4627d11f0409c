// Package auction wires the view-sync engine together: one Session per
// viewer, owning its store, timers and background loops.
package auction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/sevahub/templeauction/go/internal/auction/bidding"
	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/auction/freeze"
	"github.com/sevahub/templeauction/go/internal/auction/ladder"
	"github.com/sevahub/templeauction/go/internal/auction/poller"
	"github.com/sevahub/templeauction/go/internal/auction/realtime"
	"github.com/sevahub/templeauction/go/internal/auction/reducer"
	"github.com/sevahub/templeauction/go/internal/auction/store"
	"github.com/sevahub/templeauction/go/internal/models"
)

const defaultNotificationBuffer = 32

// Backend is the full auction REST surface a session uses
type Backend interface {
	poller.Backend
	bidding.Placer
}

// ChannelFactory builds the real-time channel once the session knows where
// messages and lifecycle hooks should go.
type ChannelFactory func(handler realtime.Handler, hooks realtime.Hooks) realtime.Channel

// Options holds session settings. Zero values fall back to defaults.
type Options struct {
	ViewerTeamID       string
	PollInterval       time.Duration
	FreezeWindow       time.Duration
	QueueLimit         int
	Ladder             ladder.Ladder
	BidOptions         int
	NotificationBuffer int
	Clock              clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = poller.DefaultInterval
	}
	if o.FreezeWindow <= 0 {
		o.FreezeWindow = freeze.DefaultWindow
	}
	if o.QueueLimit <= 0 {
		o.QueueLimit = poller.DefaultQueueLimit
	}
	if len(o.Ladder.Rungs) == 0 {
		o.Ladder = ladder.Default()
	}
	if o.BidOptions <= 0 {
		o.BidOptions = 3
	}
	if o.NotificationBuffer <= 0 {
		o.NotificationBuffer = defaultNotificationBuffer
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Session is one viewer's synchronized view of the auction
type Session struct {
	id      string
	options Options

	store   *store.Store
	timer   *freeze.Timer
	reducer *reducer.Reducer
	poller  *poller.Poller
	bids    *bidding.Controller
	channel realtime.Channel

	notifications chan events.Notification

	mu      sync.Mutex
	cancel  context.CancelFunc
	running conc.WaitGroup
	closed  bool
}

// NewSession builds a session. Nothing runs until Start.
func NewSession(backend Backend, newChannel ChannelFactory, opts Options) *Session {
	opts = opts.withDefaults()

	s := &Session{
		id:            uuid.NewString(),
		options:       opts,
		store:         store.New(),
		notifications: make(chan events.Notification, opts.NotificationBuffer),
	}

	s.timer = freeze.NewTimer(opts.Clock, s.store, opts.FreezeWindow)
	s.poller = poller.New(backend, s.store, nil, opts.Clock, poller.Config{
		Interval:     opts.PollInterval,
		QueueLimit:   opts.QueueLimit,
		ViewerTeamID: opts.ViewerTeamID,
	})
	s.reducer = reducer.New(s.store, s.timer, s.poller, s, opts.Clock, opts.ViewerTeamID)
	s.bids = bidding.NewController(backend, s.store, opts.Ladder, s.poller, s, opts.Clock)

	s.channel = newChannel(s.reducer.HandleRaw, realtime.Hooks{
		OnConnect:    s.onConnect,
		OnDisconnect: s.onDisconnect,
	})
	s.poller.SetConnection(s.channel)

	return s
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// ViewerTeamID is the team the viewer bids for, or ""
func (s *Session) ViewerTeamID() string {
	return s.options.ViewerTeamID
}

// Start runs the real-time channel and the reconciliation poller until
// Close is called or ctx ends.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	log.Info().
		Str("session_id", s.id).
		Str("team_id", s.options.ViewerTeamID).
		Msg("starting auction session")

	s.running.Go(func() {
		if err := s.channel.Run(ctx); err != nil {
			log.Error().Err(err).Str("session_id", s.id).Msg("real-time channel stopped")
		}
	})
	s.running.Go(func() {
		if err := s.poller.Run(ctx); err != nil {
			log.Error().Err(err).Str("session_id", s.id).Msg("poller stopped")
		}
	})
}

// Close stops background work, cancels timers and drops all cached state.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.running.Wait()
	s.reducer.Wait()
	s.timer.Close()
	s.store.Clear()
	s.store.Close()

	log.Info().Str("session_id", s.id).Msg("auction session closed")
}

// onConnect runs on the channel's goroutine, so the resync lands before any
// event read on the new connection is applied.
func (s *Session) onConnect(ctx context.Context) {
	s.poller.OnConnect(ctx)
}

func (s *Session) onDisconnect(err error) {
	log.Warn().Err(err).Str("session_id", s.id).Msg("real-time channel lost, polling paused")
}

// Notify queues n for the UI, dropping it if nobody is keeping up
func (s *Session) Notify(n events.Notification) {
	select {
	case s.notifications <- n:
	default:
		log.Warn().
			Str("session_id", s.id).
			Str("kind", string(n.Kind)).
			Msg("notification buffer full, dropping notification")
	}
}

// Notifications delivers outbid, live, sold, reset and rejection notices
func (s *Session) Notifications() <-chan events.Notification {
	return s.notifications
}

// Snapshot returns a copy of everything the UI renders
func (s *Session) Snapshot() models.Snapshot {
	return s.store.Snapshot()
}

// Subscribe signals after every store mutation
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

// Connected reports whether the real-time channel is live
func (s *Session) Connected() bool {
	return s.channel.Connected()
}

// NextBidAmount is the amount a one-click bid would submit
func (s *Session) NextBidAmount() int64 {
	return s.bids.NextBidAmount()
}

// BidOptions lists the quick-bid amounts for the current player
func (s *Session) BidOptions() []int64 {
	return s.bids.NextBidOptions(s.options.BidOptions)
}

// CheckBid reports why bidding is currently disabled, if it is
func (s *Session) CheckBid() bidding.Guard {
	return s.bids.Check()
}

// PlaceBid submits amount, or the next ladder amount when amount is 0
func (s *Session) PlaceBid(ctx context.Context, amount int64) (*models.Bid, error) {
	return s.bids.PlaceBid(ctx, amount)
}

// Sync forces a full resync from the backend
func (s *Session) Sync(ctx context.Context) error {
	return s.poller.Sync(ctx)
}
