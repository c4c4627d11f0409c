package store

import "github.com/sevahub/templeauction/go/internal/models"

// Replace returns full as the new state. A full state without a bid list
// keeps the previous history, but only while the same player is up.
func Replace(prev, full models.AuctionState) models.AuctionState {
	next := full.Clone()
	if next.Bids == nil && samePlayer(prev.CurrentPlayer, next.CurrentPlayer) {
		next.Bids = models.CloneBids(prev.Bids)
	}
	next.Normalize()
	return next
}

// Patch overwrites the fields set on p. A new player without an explicit
// bid resets current_bid to that player's base price.
func Patch(prev models.AuctionState, p models.StatePatch) models.AuctionState {
	next := prev.Clone()

	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.CurrentPlayer != nil {
		changed := !samePlayer(prev.CurrentPlayer, p.CurrentPlayer)
		next.CurrentPlayer = p.CurrentPlayer.Clone()
		if changed && p.CurrentBid == nil {
			next.CurrentBid = p.CurrentPlayer.BasePrice
		}
	}
	if p.CurrentBid != nil {
		next.CurrentBid = *p.CurrentBid
	}
	if p.ClearBidder {
		next.CurrentBidder = nil
	}
	if p.CurrentBidder != nil {
		next.CurrentBidder = p.CurrentBidder.Clone()
	}
	if p.TimerRemaining != nil {
		v := *p.TimerRemaining
		next.TimerRemaining = &v
	}

	next.Normalize()
	return next
}

// PrependBid returns a new history with bid at the front
func PrependBid(bids []models.Bid, bid models.Bid) []models.Bid {
	out := make([]models.Bid, 0, len(bids)+1)
	out = append(out, bid.Clone())
	return append(out, models.CloneBids(bids)...)
}

func samePlayer(a, b *models.Player) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
