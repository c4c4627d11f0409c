package reducer

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/auction/store"
	"github.com/sevahub/templeauction/go/internal/models"
)

// Refresher re-pulls authoritative slices of state from the backend
type Refresher interface {
	RefreshState(ctx context.Context) error
	RefreshQueue(ctx context.Context) error
	RefreshTeam(ctx context.Context) error
}

// Freezer starts (or restarts) the post-bid freeze window
type Freezer interface {
	Freeze()
}

// Notifier surfaces a user-facing notification
type Notifier interface {
	Notify(n events.Notification)
}

// Reducer applies one event at a time to the store and runs its effects.
// Refetch failures are logged and dropped; the poller catches up.
type Reducer struct {
	store        *store.Store
	freezer      Freezer
	refresher    Refresher
	notifier     Notifier
	clock        clockwork.Clock
	viewerTeamID string

	refetches conc.WaitGroup
}

// New creates a reducer. viewerTeamID may be "".
func New(st *store.Store, freezer Freezer, refresher Refresher, notifier Notifier, clock clockwork.Clock, viewerTeamID string) *Reducer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reducer{
		store:        st,
		freezer:      freezer,
		refresher:    refresher,
		notifier:     notifier,
		clock:        clock,
		viewerTeamID: viewerTeamID,
	}
}

// Handle applies ev. Refetches run in the background so the event stream keeps flowing.
func (r *Reducer) Handle(ctx context.Context, ev events.Event) {
	var fx Effects
	r.store.Update(func(s models.AuctionState) models.AuctionState {
		next, effects := Reduce(s, ev, r.viewerTeamID, r.clock.Now())
		fx = effects
		return next
	})

	log.Debug().
		Str("event_type", string(ev.Type())).
		Bool("freeze", fx.Freeze).
		Bool("refetch_state", fx.RefetchState).
		Bool("refetch_queue", fx.RefetchQueue).
		Bool("refetch_team", fx.RefetchTeam).
		Msg("applied auction event")

	if fx.Freeze && r.freezer != nil {
		r.freezer.Freeze()
	}
	if r.notifier != nil {
		for _, n := range fx.Notifications {
			r.notifier.Notify(n)
		}
	}
	if r.refresher == nil {
		return
	}

	if fx.RefetchState {
		r.refetch(ctx, ev.Type(), "state", r.refresher.RefreshState)
	}
	if fx.RefetchQueue {
		r.refetch(ctx, ev.Type(), "queue", r.refresher.RefreshQueue)
	}
	if fx.RefetchTeam {
		r.refetch(ctx, ev.Type(), "team", r.refresher.RefreshTeam)
	}
}

// HandleRaw decodes a wire message and applies it. Undecodable messages are dropped.
func (r *Reducer) HandleRaw(ctx context.Context, raw []byte) {
	ev, err := events.Decode(raw)
	if err != nil {
		var unknown *events.ErrUnknownEventType
		if errors.As(err, &unknown) {
			log.Debug().Str("event_type", string(unknown.Type)).Msg("ignoring unknown auction event")
		} else {
			log.Warn().Err(err).Msg("dropping malformed auction event")
		}
		return
	}
	r.Handle(ctx, ev)
}

// Wait blocks until background refetches finish
func (r *Reducer) Wait() {
	r.refetches.Wait()
}

func (r *Reducer) refetch(ctx context.Context, cause events.EventType, what string, fn func(context.Context) error) {
	r.refetches.Go(func() {
		if err := fn(ctx); err != nil {
			log.Debug().
				Err(err).
				Str("event_type", string(cause)).
				Str("refetch", what).
				Msg("background refetch failed")
		}
	})
}
