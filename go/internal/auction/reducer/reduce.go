// Package reducer maps real-time auction events onto the snapshot store.
package reducer

import (
	"fmt"
	"time"

	"github.com/sevahub/templeauction/go/internal/auction/events"
	"github.com/sevahub/templeauction/go/internal/auction/store"
	"github.com/sevahub/templeauction/go/internal/models"
)

// Effects are the side effects an event asks for after its state change
type Effects struct {
	Freeze        bool
	RefetchState  bool
	RefetchQueue  bool
	RefetchTeam   bool // team and squad together
	Notifications []events.Notification
}

// Reduce returns the state after ev plus the effects to run. It never
// touches I/O or timers. viewerTeamID is "" when the viewer has no team.
func Reduce(state models.AuctionState, ev events.Event, viewerTeamID string, now time.Time) (models.AuctionState, Effects) {
	var fx Effects

	switch e := ev.(type) {
	case events.FullState:
		return store.Replace(state, e.State), fx

	case events.NewBid:
		bid := e.Bid
		if bid.PlayerID != "" && state.CurrentPlayer != nil && bid.PlayerID != state.CurrentPlayer.ID {
			// Late bid for a player who has already left the block. State is
			// untouched but the cool-down still applies to every bid.
			fx.Freeze = true
			return state, fx
		}

		prevLeader := state.LeaderID()
		next := state.Clone()
		next.CurrentBid = bid.Amount
		next.CurrentBidder = bidderFor(state, bid)
		next.Bids = store.PrependBid(state.Bids, bid)
		next.Normalize()

		fx.Freeze = true
		if viewerTeamID != "" && prevLeader == viewerTeamID && bid.TeamID != viewerTeamID {
			fx.Notifications = append(fx.Notifications, events.Notification{
				Kind:    events.NotificationOutbid,
				Message: fmt.Sprintf("You have been outbid by %s at %d", teamLabel(next.CurrentBidder), bid.Amount),
				At:      now,
			})
		}
		return next, fx

	case events.PlayerSold:
		fx.RefetchQueue = true
		if viewerTeamID != "" && e.TeamID == viewerTeamID {
			fx.RefetchTeam = true
			fx.Notifications = append(fx.Notifications, events.Notification{
				Kind:    events.NotificationSold,
				Message: fmt.Sprintf("Player bought for %d", e.SoldPrice),
				At:      now,
			})
		}
		return state, fx

	case events.PlayerChanged:
		next := state.Clone()
		player := e.Player
		next.CurrentPlayer = &player
		next.CurrentBid = player.BasePrice
		next.CurrentBidder = nil
		next.Bids = []models.Bid{}
		fx.RefetchQueue = true
		return next, fx

	case events.PlayerUnsold:
		fx.RefetchQueue = true
		return state, fx

	case events.AuctionLive:
		next := state.Clone()
		next.Status = models.AuctionStatusLive
		if state.Status != models.AuctionStatusLive {
			msg := e.Message
			if msg == "" {
				msg = "The auction is live"
			}
			fx.Notifications = append(fx.Notifications, events.Notification{
				Kind:    events.NotificationLive,
				Message: msg,
				At:      now,
			})
		}
		return next, fx

	case events.AuctionReset:
		next := state.Clone()
		next.Bids = []models.Bid{}
		fx.RefetchState = true
		fx.RefetchQueue = true
		fx.RefetchTeam = viewerTeamID != ""
		fx.Notifications = append(fx.Notifications, events.Notification{
			Kind:    events.NotificationReset,
			Message: "The auction has been reset",
			At:      now,
		})
		return next, fx

	default:
		return state, fx
	}
}

func bidderFor(state models.AuctionState, bid models.Bid) *models.Team {
	if bid.Team != nil {
		return bid.Team.Clone()
	}
	if state.CurrentBidder != nil && state.CurrentBidder.ID == bid.TeamID {
		return state.CurrentBidder.Clone()
	}
	return &models.Team{ID: bid.TeamID}
}

func teamLabel(t *models.Team) string {
	switch {
	case t == nil:
		return "another team"
	case t.ShortName != "":
		return t.ShortName
	case t.Name != "":
		return t.Name
	default:
		return t.ID
	}
}
