// Package bidding turns a viewer's bid intent into a validated backend call.
package bidding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/auction/ladder"
	"github.com/sevahub/templeauction/go/internal/auction/store"
	"github.com/sevahub/templeauction/go/internal/models"
)

var (
	ErrNoTeam             = errors.New("must be assigned to a team")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrNoCurrentPlayer    = errors.New("no player is up for bidding")
	ErrSubmissionInFlight = errors.New("a bid is already being submitted")
)

// Phase is where a single submission attempt stands
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// Guard names the reason the UI should disable the bid button
type Guard string

const (
	GuardNone       Guard = ""
	GuardNoTeam     Guard = "no_team"
	GuardSquadFull  Guard = "squad_full"
	GuardNoPlayer   Guard = "no_player"
	GuardLeading    Guard = "leading"
	GuardFrozen     Guard = "frozen"
	GuardSubmitting Guard = "submitting"
)

// Placer submits a bid to the backend
type Placer interface {
	PlaceBid(ctx context.Context, amount int64) (*models.Bid, error)
}

// StateRefresher re-pulls the full auction state
type StateRefresher interface {
	RefreshState(ctx context.Context) error
}

// Notifier surfaces a user-facing notification
type Notifier interface {
	Notify(n events.Notification)
}

// Controller validates and submits bids. The backend stays the final
// arbiter; these checks only stop requests that are certain to fail.
type Controller struct {
	placer    Placer
	store     *store.Store
	ladder    ladder.Ladder
	refresher StateRefresher
	notifier  Notifier
	clock     clockwork.Clock

	mu    sync.Mutex
	phase Phase
}

// NewController creates a bid controller
func NewController(placer Placer, st *store.Store, l ladder.Ladder, refresher StateRefresher, notifier Notifier, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		placer:    placer,
		store:     st,
		ladder:    l,
		refresher: refresher,
		notifier:  notifier,
		clock:     clock,
		phase:     PhaseIdle,
	}
}

// Phase returns the current submission phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// NextBidAmount is the ladder's next legal amount for the current snapshot
func (c *Controller) NextBidAmount() int64 {
	state := c.store.State()
	return c.ladder.NextBidAmount(state.CurrentBid, state.BasePrice(), state.HasBidder())
}

// NextBidOptions lists up to n quick-bid amounts for the current snapshot
func (c *Controller) NextBidOptions(n int) []int64 {
	state := c.store.State()
	return c.ladder.NextBidOptions(state.CurrentBid, state.BasePrice(), state.HasBidder(), n)
}

// Check reports the UX guard that currently applies, or GuardNone
func (c *Controller) Check() Guard {
	snap := c.store.Snapshot()
	switch {
	case snap.Team == nil:
		return GuardNoTeam
	case snap.Team.SquadFull():
		return GuardSquadFull
	case snap.State.CurrentPlayer == nil:
		return GuardNoPlayer
	case c.Phase() == PhaseSubmitting:
		return GuardSubmitting
	case snap.State.LeaderID() == snap.Team.ID:
		return GuardLeading
	case snap.Overlay.BidFrozen:
		return GuardFrozen
	default:
		return GuardNone
	}
}

// PlaceBid submits amount, or the ladder's next amount when amount is 0.
// Backend rejections are returned unchanged so their message reaches the
// user verbatim. There is no retry.
func (c *Controller) PlaceBid(ctx context.Context, amount int64) (*models.Bid, error) {
	team := c.store.Team()
	if team == nil {
		return nil, ErrNoTeam
	}
	state := c.store.State()
	if state.CurrentPlayer == nil {
		return nil, ErrNoCurrentPlayer
	}
	if amount <= 0 {
		amount = c.ladder.NextBidAmount(state.CurrentBid, state.BasePrice(), state.HasBidder())
	}
	if !team.CanAfford(amount) {
		return nil, fmt.Errorf("%w: bid %d exceeds remaining %d", ErrInsufficientBudget, amount, team.RemainingBudget)
	}

	if !c.begin() {
		return nil, ErrSubmissionInFlight
	}
	defer c.end()

	log.Info().
		Str("team_id", team.ID).
		Str("player_id", state.CurrentPlayer.ID).
		Int64("amount", amount).
		Msg("submitting bid")

	bid, err := c.placer.PlaceBid(ctx, amount)
	if err != nil {
		log.Warn().Err(err).Int64("amount", amount).Msg("bid rejected")
		if c.notifier != nil {
			c.notifier.Notify(events.Notification{
				Kind:    events.NotificationBidRejected,
				Message: err.Error(),
				At:      c.clock.Now(),
			})
		}
		return nil, err
	}

	// Don't wait for the real-time echo to show the new amount.
	if c.refresher != nil {
		if err := c.refresher.RefreshState(ctx); err != nil {
			log.Debug().Err(err).Msg("state refresh after bid failed")
		}
	}

	return bid, nil
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitting {
		return false
	}
	c.phase = PhaseSubmitting
	return true
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseIdle
}
