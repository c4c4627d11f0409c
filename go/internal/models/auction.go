package models

// AuctionStatus is the backend-reported phase of the auction
type AuctionStatus string

const (
	AuctionStatusIdle      AuctionStatus = "idle"
	AuctionStatusLive      AuctionStatus = "live"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusPaused    AuctionStatus = "paused"
	AuctionStatusCompleted AuctionStatus = "completed"
)

// AuctionState is the backend's view of what is happening right now.
// Bids is newest first. A nil Bids means the payload carried no history.
type AuctionState struct {
	Status         AuctionStatus `json:"status"`
	CurrentPlayer  *Player       `json:"current_player,omitempty"`
	CurrentBid     int64         `json:"current_bid"`
	CurrentBidder  *Team         `json:"current_bidder,omitempty"`
	TimerRemaining *int          `json:"timer_remaining,omitempty"`
	Bids           []Bid         `json:"bids,omitempty"`
}

// HasBidder reports whether someone has bid on the current player
func (s *AuctionState) HasBidder() bool {
	return s.CurrentBidder != nil
}

// BasePrice returns the current player's base price, or 0 when nobody is up
func (s *AuctionState) BasePrice() int64 {
	if s.CurrentPlayer == nil {
		return 0
	}
	return s.CurrentPlayer.BasePrice
}

// LeaderID returns the current bidder's team id, or "" when nobody has bid
func (s *AuctionState) LeaderID() string {
	if s.CurrentBidder == nil {
		return ""
	}
	return s.CurrentBidder.ID
}

// Normalize fills current_bid from the base price when a player is up and no bid is set
func (s *AuctionState) Normalize() {
	if s.CurrentPlayer != nil && s.CurrentBid <= 0 {
		s.CurrentBid = s.CurrentPlayer.BasePrice
	}
}

// Clone returns a deep copy of the state
func (s AuctionState) Clone() AuctionState {
	s.CurrentPlayer = s.CurrentPlayer.Clone()
	s.CurrentBidder = s.CurrentBidder.Clone()
	if s.TimerRemaining != nil {
		v := *s.TimerRemaining
		s.TimerRemaining = &v
	}
	s.Bids = CloneBids(s.Bids)
	return s
}

// StatePatch carries the fields an incremental update touches. Nil means untouched.
type StatePatch struct {
	Status         *AuctionStatus
	CurrentPlayer  *Player
	CurrentBid     *int64
	CurrentBidder  *Team
	ClearBidder    bool
	TimerRemaining *int
}

// Overlay is client-only display state. It is never sent to or read from the backend.
type Overlay struct {
	BidFrozen bool `json:"bid_frozen"`
}

// Snapshot is everything a bidding client renders at one instant
type Snapshot struct {
	State   AuctionState `json:"state"`
	Overlay Overlay      `json:"overlay"`
	Team    *Team        `json:"team,omitempty"`
	Squad   []Player     `json:"squad"`
	Queue   []Player     `json:"queue"`
}
